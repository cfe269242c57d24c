package tts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashwave/voxbridge/pkg/orchestrator"
)

type mockTTSProvider struct {
	results [][]byte
	call    int
}

func (m *mockTTSProvider) Synthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language) ([]byte, error) {
	r := m.results[m.call]
	if m.call < len(m.results)-1 {
		m.call++
	}
	return r, nil
}
func (m *mockTTSProvider) StreamSynthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language, onChunk func([]byte) error) error {
	return nil
}
func (m *mockTTSProvider) Abort() error   { return nil }
func (m *mockTTSProvider) Name() string  { return "mock" }

func loudPCM(n int) []byte {
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		out[2*i] = 0xff
		out[2*i+1] = 0x7f // max positive int16, loud
	}
	return out
}

func silentPCM(n int) []byte {
	return make([]byte, n*2)
}

func TestSynthesizeRetriesOnExcessiveSilence(t *testing.T) {
	provider := &mockTTSProvider{results: [][]byte{silentPCM(2000), loudPCM(2000)}}
	voices := NewSpeakerVoiceMap(orchestrator.VoiceF1)
	dir := t.TempDir()
	w := NewWorker(provider, voices, dir)

	pcm, path, err := w.Synthesize(context.Background(), "hello", "unknown", orchestrator.LanguageEn, 44100)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(pcm) == 0 {
		t.Fatal("expected non-empty pcm")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cache file at %s: %v", path, err)
	}
	if filepath.Ext(path) != ".wav" {
		t.Fatalf("expected .wav cache file, got %s", path)
	}
}

func TestVoiceMapFallback(t *testing.T) {
	m := NewSpeakerVoiceMap(orchestrator.VoiceM2)
	m.Set("钟离", orchestrator.VoiceM1)

	if got := m.Resolve("钟离"); got != orchestrator.VoiceM1 {
		t.Errorf("expected VoiceM1, got %s", got)
	}
	if got := m.Resolve("unknown speaker"); got != orchestrator.VoiceM2 {
		t.Errorf("expected fallback VoiceM2, got %s", got)
	}
}
