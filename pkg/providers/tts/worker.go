package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashwave/voxbridge/pkg/audio"
	"github.com/hashwave/voxbridge/pkg/orchestrator"
)

// SpeakerVoiceMap resolves an arbitrary speaker name (as produced by
// pkg/segmenter, e.g. "钟离" or "温迪") to a synthesis voice, falling back
// to a default when the speaker is unrecognized. Grounded on
// original_source/config_manager.go's speaker_voices map (character-name
// keys with an "unknown" fallback entry).
type SpeakerVoiceMap struct {
	byName  map[string]orchestrator.Voice
	fallback orchestrator.Voice
}

func NewSpeakerVoiceMap(fallback orchestrator.Voice) *SpeakerVoiceMap {
	return &SpeakerVoiceMap{byName: make(map[string]orchestrator.Voice), fallback: fallback}
}

func (m *SpeakerVoiceMap) Set(speaker string, voice orchestrator.Voice) {
	m.byName[speaker] = voice
}

func (m *SpeakerVoiceMap) Resolve(speaker string) orchestrator.Voice {
	if v, ok := m.byName[speaker]; ok {
		return v
	}
	return m.fallback
}

// silenceThresholdDBFS and maxSilenceRatio mirror config_manager.go's
// silence_detection.{silence_threshold,...} and
// tts_playback.py's hard-coded 0.5 retry cutoff.
const (
	silenceThresholdDBFS = -50.0
	maxSilenceRatio      = 0.5
	maxSynthesisRetries  = 3
)

// Worker wraps a TTSProvider with speaker-voice resolution, on-disk
// caching of synthesized turns, and the silence-ratio retry guard ported
// from original_source/tts_playback.py's calculate_silence_ratio +
// pydub.silence.detect_silence: when too much of the synthesized clip is
// near-silent, the worker assumes a flaky backend and re-synthesizes.
type Worker struct {
	provider orchestrator.TTSProvider
	voices   *SpeakerVoiceMap
	cacheDir string
	counter  int
}

func NewWorker(provider orchestrator.TTSProvider, voices *SpeakerVoiceMap, cacheDir string) *Worker {
	return &Worker{provider: provider, voices: voices, cacheDir: cacheDir}
}

// Synthesize resolves speaker -> voice, synthesizes, retries on an
// excessively silent result, and writes a cache file named
// "NNNN_<seconds>s_<uuid>.wav" (NNNN the zero-padded sequence number,
// <seconds> the clip length from pkg/audio.Duration; see
// pkg/audio.NewWavBuffer) before returning the PCM. At most
// maxSynthesisRetries attempts are made; if the last one is still mostly
// silent, it is used as is.
func (w *Worker) Synthesize(ctx context.Context, text, speaker string, lang orchestrator.Language, sampleRate int) ([]byte, string, error) {
	voice := w.voices.Resolve(speaker)

	var pcm []byte
	var err error
	for attempt := 0; attempt < maxSynthesisRetries; attempt++ {
		pcm, err = w.provider.Synthesize(ctx, text, voice, lang)
		if err != nil {
			return nil, "", fmt.Errorf("tts worker: synthesize: %w", err)
		}
		if audio.SilenceRatio(pcm, silenceThresholdDBFS) <= maxSilenceRatio {
			break
		}
	}

	w.counter++
	dur := audio.Duration(pcm, sampleRate)
	name := fmt.Sprintf("%04d_%.2fs_%s.wav", w.counter, dur.Seconds(), uuid.NewString())

	var path string
	if w.cacheDir != "" {
		path = filepath.Join(w.cacheDir, name)
		if err := os.WriteFile(path, audio.NewWavBuffer(pcm, sampleRate), 0o644); err != nil {
			return pcm, "", fmt.Errorf("tts worker: cache write %s: %w", path, err)
		}
	}

	return pcm, path, nil
}
