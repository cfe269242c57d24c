package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type mockSummarizer struct {
	calls [][]Message
	out   string
	err   error
}

func (m *mockSummarizer) Summarize(ctx context.Context, messages []Message) (string, error) {
	m.calls = append(m.calls, messages)
	return m.out, m.err
}

func TestAppendTracksTotalTurns(t *testing.T) {
	s := New(20, 5, nil)
	s.Append("user", "hi")
	s.Append("assistant", "hello")

	if got := s.TotalTurns(); got != 2 {
		t.Fatalf("TotalTurns() = %d, want 2", got)
	}
	if msgs := s.MessagesForModel(); len(msgs) != 2 {
		t.Fatalf("MessagesForModel() returned %d messages, want 2", len(msgs))
	}
}

func TestMaybeCompressKeepsMostRecentMessages(t *testing.T) {
	mock := &mockSummarizer{out: "summary of old turns"}
	s := New(4, 2, mock)

	for i := 0; i < 4; i++ {
		s.Append("user", "turn")
	}

	if err := s.MaybeCompress(context.Background()); err != nil {
		t.Fatalf("MaybeCompress: %v", err)
	}

	msgs := s.MessagesForModel()
	if len(msgs) != 3 { // 1 summary message + last 2 kept
		t.Fatalf("expected 3 messages after compression, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Role != "system" || msgs[0].Content != "[历史摘要] summary of old turns" {
		t.Fatalf("unexpected summary message: %+v", msgs[0])
	}
	if len(mock.calls) != 1 || len(mock.calls[0]) != 2 {
		t.Fatalf("expected summarizer called with the 2 earliest messages, got %+v", mock.calls)
	}
}

func TestMaybeCompressNoopBelowMaxHistory(t *testing.T) {
	mock := &mockSummarizer{out: "should not be used"}
	s := New(20, 5, mock)
	s.Append("user", "hi")

	if err := s.MaybeCompress(context.Background()); err != nil {
		t.Fatalf("MaybeCompress: %v", err)
	}
	if len(mock.calls) != 0 {
		t.Fatalf("expected no summarization below maxHistory, got %d calls", len(mock.calls))
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")

	s := New(20, 5, nil)
	s.Append("user", "hello")
	s.Append("assistant", "hi there")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New(20, 5, nil)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TotalTurns() != 2 {
		t.Fatalf("TotalTurns() after load = %d, want 2", loaded.TotalTurns())
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	s := New(20, 5, nil)
	if err := s.Load(filepath.Join(os.TempDir(), "does-not-exist-history.json")); err != nil {
		t.Fatalf("Load on missing file should be best-effort, got: %v", err)
	}
}

func TestClearSystemOnly(t *testing.T) {
	s := New(20, 5, nil)
	s.Append("system", "be helpful")
	s.Append("user", "hi")
	s.Append("assistant", "hello")
	s.ClearSystemOnly()

	msgs := s.MessagesForModel()
	if len(msgs) != 1 || msgs[0].Role != "system" {
		t.Fatalf("expected only system message to survive, got %+v", msgs)
	}
}
