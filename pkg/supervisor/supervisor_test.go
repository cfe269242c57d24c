package supervisor

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeCommandSink struct {
	values []float64
}

func (f *fakeCommandSink) SetSensitivity(value float64) {
	f.values = append(f.values, value)
}

func TestCommandLoopDispatchesSensitivity(t *testing.T) {
	sink := &fakeCommandSink{}
	r := strings.NewReader("v0.75\nsome garbage\nv0.4\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	quit := CommandLoop(ctx, r, sink)
	<-quit

	if len(sink.values) != 2 || sink.values[0] != 0.75 || sink.values[1] != 0.4 {
		t.Fatalf("expected [0.75 0.4], got %v", sink.values)
	}
}

func TestCommandLoopStopsOnQuit(t *testing.T) {
	sink := &fakeCommandSink{}
	r := strings.NewReader("v0.5\nquit\nv0.9\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	quit := CommandLoop(ctx, r, sink)
	<-quit

	if len(sink.values) != 1 || sink.values[0] != 0.5 {
		t.Fatalf("expected loop to stop before the second command, got %v", sink.values)
	}
}
