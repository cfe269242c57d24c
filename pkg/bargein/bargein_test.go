package bargein

import "testing"

func TestRaiseIsIdempotentAndObservable(t *testing.T) {
	c := New()
	if c.Raised() {
		t.Fatal("expected fresh controller to not be raised")
	}
	c.Raise()
	c.Raise() // idempotent
	if !c.Raised() {
		t.Fatal("expected Raised() true after Raise()")
	}
	select {
	case <-c.Done():
	default:
		t.Fatal("expected Done() channel closed after Raise()")
	}
}

func TestResetClearsForNextTurn(t *testing.T) {
	c := New()
	c.Raise()
	c.Reset()
	if c.Raised() {
		t.Fatal("expected Raised() false after Reset()")
	}
}

func TestDrainRemovesQueuedItemsUntilEmpty(t *testing.T) {
	items := []interface{}{"a", "b", "c"}
	i := 0
	fn := func() (interface{}, bool) {
		if i >= len(items) {
			return nil, false
		}
		v := items[i]
		i++
		return v, true
	}

	out := Drain(fn)
	if len(out) != 1 || len(out[0]) != 3 {
		t.Fatalf("expected 3 drained items, got %+v", out)
	}
}
