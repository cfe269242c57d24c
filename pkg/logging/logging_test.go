package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &ZapLogger{sugar: zap.New(core).Sugar()}

	l.Info("turn started", "session_id", "abc123", "speaker", "钟离")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "turn started" {
		t.Errorf("unexpected message: %s", entries[0].Message)
	}
	fields := entries[0].ContextMap()
	if fields["session_id"] != "abc123" {
		t.Errorf("expected session_id field, got %v", fields)
	}
}

func TestErrorLevelRouting(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{sugar: zap.New(core).Sugar()}

	l.Error("synthesis failed", "attempt", 3)

	if logs.Len() != 1 || logs.All()[0].Level != zap.ErrorLevel {
		t.Fatalf("expected 1 error-level entry, got %+v", logs.All())
	}
}
