// Package history implements a bounded conversation history with periodic
// LLM-driven compression and best-effort JSON persistence.
//
// Grounded on original_source/ollama_stream.py's ChatHistoryManager. That
// file's compress_interval logic summarizes history[:m] — the EARLIEST m
// messages. This standardizes on the opposite: compress everything EXCEPT
// the most recent compress_interval messages, so that recent context is
// never lost to summarization. See DESIGN.md, Open Question (b).
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Message mirrors orchestrator.Message's JSON shape ({"role","content"}).
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Summarizer produces a condensed summary of a slice of messages. Any
// orchestrator.LLMProvider satisfies this via a thin adapter (see
// llmSummarizer in cmd/agent), since summarization is itself a chat
// completion.
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message) (string, error)
}

// persistedState is the exact JSON document shape original_source writes:
// {"total_turns": N, "history": [...]}.
type persistedState struct {
	TotalTurns int       `json:"total_turns"`
	History    []Message `json:"history"`
}

// Store is a mutex-guarded, bounded conversation history.
type Store struct {
	mu               sync.Mutex
	history          []Message
	totalTurns       int
	maxHistory       int
	compressInterval int
	summarizer       Summarizer
}

// New creates a Store. maxHistory and compressInterval mirror
// config_manager.py's ollama.{max_history,compress_interval} keys.
func New(maxHistory, compressInterval int, summarizer Summarizer) *Store {
	if compressInterval <= 0 {
		compressInterval = 1
	}
	return &Store{
		maxHistory:       maxHistory,
		compressInterval: compressInterval,
		summarizer:       summarizer,
	}
}

// Append adds a single message and increments the turn counter.
func (s *Store) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Message{Role: role, Content: content})
	s.totalTurns++
}

// MessagesForModel returns a defensive copy of the current history, ready
// to prepend/append to a turn's outgoing message list.
func (s *Store) MessagesForModel() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// TotalTurns reports the running count of appended messages (not reset by
// compression).
func (s *Store) TotalTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTurns
}

// MaybeCompress triggers compression once total_turns >= maxHistory and
// total_turns % compressInterval == 0, matching
// ChatHistoryManager.maybe_compress_history's trigger condition. Unlike
// that file, the portion summarized is history[:-compressInterval] (all
// but the most recent compressInterval messages), not history[:m].
func (s *Store) MaybeCompress(ctx context.Context) error {
	s.mu.Lock()
	shouldCompress := s.totalTurns >= s.maxHistory && s.totalTurns%s.compressInterval == 0
	if !shouldCompress || s.summarizer == nil {
		s.mu.Unlock()
		return nil
	}
	n := len(s.history) - s.compressInterval
	if n <= 0 {
		s.mu.Unlock()
		return nil
	}
	toSummarize := make([]Message, n)
	copy(toSummarize, s.history[:n])
	s.mu.Unlock()

	summary, err := s.summarizer.Summarize(ctx, toSummarize)
	if err != nil {
		return fmt.Errorf("history: summarize earliest turns: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Recompute n against the current (possibly changed) history length to
	// avoid clobbering messages appended while Summarize was in flight.
	n = len(s.history) - s.compressInterval
	if n <= 0 {
		return nil
	}
	kept := make([]Message, len(s.history)-n)
	copy(kept, s.history[n:])
	s.history = append([]Message{{Role: "system", Content: "[历史摘要] " + summary}}, kept...)
	return nil
}

// Save writes {"total_turns":N,"history":[...]} to path.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	state := persistedState{TotalTurns: s.totalTurns, History: append([]Message(nil), s.history...)}
	s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("history: write %s: %w", path, err)
	}
	return nil
}

// Load best-effort restores history from path: a missing file is not an
// error (matches load_from_file's "skip, don't fail" behavior on startup);
// a malformed file is reported but leaves the Store untouched.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("history: read %s: %w", path, err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("history: parse %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTurns = state.TotalTurns
	s.history = state.History
	return nil
}

// ClearSystemOnly truncates history down to its system messages, for a
// caller that wants to keep standing instructions but drop the
// conversation.
func (s *Store) ClearSystemOnly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]Message, 0, len(s.history))
	for _, m := range s.history {
		if strings.EqualFold(m.Role, "system") {
			kept = append(kept, m)
		}
	}
	s.history = kept
}
