// Package capture assembles raw microphone frames into speech-bracketed
// Utterance values: a rolling lead-buffer recorder that owns only
// recording, not STT/VAD wiring.
package capture

import (
	"bytes"
	"sync"
)

// Utterance is a fully-bracketed span of captured audio: the rolling
// lead-in recorded before speech was confirmed, plus everything captured
// while the gate reported speech.
type Utterance struct {
	PCM        []byte
	SampleRate int
}

// leadBytes is ~100ms at 44.1kHz 16-bit mono.
const leadBytes = 8820

// Recorder owns the rolling pre-speech buffer and the in-progress speech
// buffer. SampleRate/BytesPerSample configure the trim thresholds (2s
// pre-trigger buffer capped to a trailing 1.5s), generalizing fixed
// 176400/132300-byte constants to arbitrary sample formats.
type Recorder struct {
	mu sync.Mutex

	sampleRate     int
	bytesPerSample int
	channels       int

	lead    *bytes.Buffer
	inTurn  bool
	leadCap int
	leadKeep int
}

// NewRecorder creates a Recorder for the given PCM format. preTriggerSecs
// controls how much audio is buffered before speech is confirmed (2.0 by
// convention); keepSecs controls how much of that buffer survives a trim
// (1.5 by convention).
func NewRecorder(sampleRate, bytesPerSample, channels int, preTriggerSecs, keepSecs float64) *Recorder {
	frameBytes := bytesPerSample * channels
	return &Recorder{
		sampleRate:     sampleRate,
		bytesPerSample: bytesPerSample,
		channels:       channels,
		lead:           new(bytes.Buffer),
		leadCap:        int(float64(sampleRate*frameBytes) * preTriggerSecs),
		leadKeep:       int(float64(sampleRate*frameBytes) * keepSecs),
	}
}

// Write appends a captured frame. speaking reflects the VAD gate's current
// state for this frame, used to decide whether to keep trimming the
// pre-trigger buffer or to let it grow across a full speech turn.
func (r *Recorder) Write(chunk []byte, speaking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lead.Write(chunk)
	r.inTurn = r.inTurn || speaking

	if !speaking && r.lead.Len() > r.leadCap {
		data := r.lead.Bytes()
		keep := data[len(data)-r.leadKeep:]
		trimmed := make([]byte, len(keep))
		copy(trimmed, keep)
		r.lead.Reset()
		r.lead.Write(trimmed)
	}
}

// LeadTail returns up to n bytes from the end of the current buffer,
// without consuming it.
func (r *Recorder) LeadTail(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := r.lead.Bytes()
	if len(data) > n {
		data = data[len(data)-n:]
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// TakeUtterance drains the entire accumulated buffer as a finished
// Utterance and resets recording state for the next turn.
func (r *Recorder) TakeUtterance() Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := make([]byte, r.lead.Len())
	copy(data, r.lead.Bytes())
	r.lead.Reset()
	r.inTurn = false
	return Utterance{PCM: data, SampleRate: r.sampleRate}
}

// Reinsert pushes previously-taken audio back to the front of the buffer,
// ahead of anything written since it was taken.
func (r *Recorder) Reinsert(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	combined := append(append([]byte{}, data...), r.lead.Bytes()...)
	r.lead.Reset()
	r.lead.Write(combined)
}
