// Package playback drives an ordered, interruptible audio output device:
// a reusable playback-buffer worker that any Sink (malgo device, a file
// writer, a test double) can implement.
package playback

import (
	"bytes"
	"sync"
	"time"

	"github.com/hashwave/voxbridge/pkg/bargein"
)

// Sink consumes PCM bytes destined for an audio output device.
type Sink interface {
	Write(pcm []byte) (int, error)
}

// GateNotifier is satisfied by anything that needs to know when playback
// starts/stops, so it can raise its echo-guard threshold — pkg/vad.Gate in
// production.
type GateNotifier interface {
	SetPlaying(playing bool)
}

// pollInterval is how often Player checks for a raised barge-in between
// writes: a ~10ms cooperative-cancellation cadence.
const pollInterval = 10 * time.Millisecond

// Player plays artifacts in strict arrival order onto a Sink, polling a
// bargein.Controller between chunks so a mid-utterance interrupt takes
// effect within one poll interval instead of waiting for the whole
// artifact to drain.
type Player struct {
	sink   Sink
	gate   GateNotifier
	bg     *bargein.Controller

	mu     sync.Mutex
	queue  [][]byte
}

// New creates a Player. gate may be nil if no VAD echo guard is wired.
func New(sink Sink, gate GateNotifier, bg *bargein.Controller) *Player {
	return &Player{sink: sink, gate: gate, bg: bg}
}

// Enqueue appends a chunk to the playback queue. Safe to call concurrently
// with Run (e.g. from a TTS streaming onChunk callback).
func (p *Player) Enqueue(chunk []byte) {
	p.mu.Lock()
	p.queue = append(p.queue, chunk)
	p.mu.Unlock()
}

func (p *Player) dequeue() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	chunk := p.queue[0]
	p.queue = p.queue[1:]
	return chunk, true
}

// Drain discards any queued-but-unplayed audio, used on barge-in so stale
// bot speech never reaches the speaker after an interrupt.
func (p *Player) Drain() {
	p.mu.Lock()
	p.queue = nil
	p.mu.Unlock()
}

// PlayAll writes every currently-queued chunk to the sink in order,
// stopping early if the barge-in controller is raised. It notifies the
// gate before the first chunk and after the last (or after an interrupt),
// matching the VAD echo guard's playing/not-playing transitions.
func (p *Player) PlayAll() error {
	if _, ok := p.dequeuePeek(); !ok {
		return nil
	}

	if p.gate != nil {
		p.gate.SetPlaying(true)
	}
	defer func() {
		if p.gate != nil {
			p.gate.SetPlaying(false)
		}
	}()

	for {
		if p.bg != nil && p.bg.Raised() {
			p.Drain()
			return nil
		}

		chunk, ok := p.dequeue()
		if !ok {
			return nil
		}
		if _, err := p.sink.Write(chunk); err != nil {
			return err
		}

		time.Sleep(pollInterval)
	}
}

func (p *Player) dequeuePeek() ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	return p.queue[0], true
}

// BufferedSink is an in-memory Sink useful for tests and for the malgo
// duplex callback pattern, where playback pulls from an accumulated buffer
// rather than being pushed to directly.
type BufferedSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *BufferedSink) Write(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(pcm)
}

// Read drains up to len(p) bytes into p, zero-filling any shortfall — the
// shape a malgo duplex output callback expects.
func (s *BufferedSink) Read(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := s.buf.Read(p)
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return n
}
