package playback

import (
	"testing"

	"github.com/hashwave/voxbridge/pkg/bargein"
)

type fakeSink struct {
	writes [][]byte
}

func (f *fakeSink) Write(pcm []byte) (int, error) {
	f.writes = append(f.writes, pcm)
	return len(pcm), nil
}

type fakeGate struct {
	states []bool
}

func (f *fakeGate) SetPlaying(playing bool) {
	f.states = append(f.states, playing)
}

func TestPlayAllWritesInOrder(t *testing.T) {
	sink := &fakeSink{}
	gate := &fakeGate{}
	bg := bargein.New()
	p := New(sink, gate, bg)

	p.Enqueue([]byte{1})
	p.Enqueue([]byte{2})
	p.Enqueue([]byte{3})

	if err := p.PlayAll(); err != nil {
		t.Fatalf("PlayAll: %v", err)
	}
	if len(sink.writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(sink.writes))
	}
	if gate.states[0] != true || gate.states[len(gate.states)-1] != false {
		t.Fatalf("expected gate to toggle true then false, got %v", gate.states)
	}
}

func TestPlayAllStopsOnBargeIn(t *testing.T) {
	sink := &fakeSink{}
	bg := bargein.New()
	p := New(sink, nil, bg)

	p.Enqueue([]byte{1})
	p.Enqueue([]byte{2})
	bg.Raise()

	if err := p.PlayAll(); err != nil {
		t.Fatalf("PlayAll: %v", err)
	}
	if len(sink.writes) != 0 {
		t.Fatalf("expected no writes after barge-in, got %d", len(sink.writes))
	}
}
