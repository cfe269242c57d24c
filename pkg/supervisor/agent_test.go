package supervisor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hashwave/voxbridge/pkg/bargein"
	"github.com/hashwave/voxbridge/pkg/capture"
	"github.com/hashwave/voxbridge/pkg/history"
	"github.com/hashwave/voxbridge/pkg/orchestrator"
	"github.com/hashwave/voxbridge/pkg/playback"
	"github.com/hashwave/voxbridge/pkg/segmenter"
	"github.com/hashwave/voxbridge/pkg/providers/tts"
	"github.com/hashwave/voxbridge/pkg/vad"
)

type mockSTT struct{ transcript string }

func (m *mockSTT) Transcribe(ctx context.Context, audio []byte, lang orchestrator.Language) (string, error) {
	return m.transcript, nil
}
func (m *mockSTT) Name() string { return "mock-stt" }

type mockLLM struct{ response string }

func (m *mockLLM) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	return m.response, nil
}
func (m *mockLLM) Name() string { return "mock-llm" }

type mockTTSProvider struct{}

func (m *mockTTSProvider) Synthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language) ([]byte, error) {
	return make([]byte, 2000), nil
}
func (m *mockTTSProvider) StreamSynthesize(ctx context.Context, text string, voice orchestrator.Voice, lang orchestrator.Language, onChunk func([]byte) error) error {
	return nil
}
func (m *mockTTSProvider) Abort() error { return nil }
func (m *mockTTSProvider) Name() string { return "mock-tts" }

type fakeSink struct{ n int }

func (f *fakeSink) Write(pcm []byte) (int, error) {
	f.n += len(pcm)
	return len(pcm), nil
}

func newTestAgent(t *testing.T, transcript, response string) (*Supervisor, *fakeSink) {
	t.Helper()
	detector := vad.NewRMSDetector(2, 50*time.Millisecond)
	gate := vad.NewGate(detector, 0.5, 0.2)
	recorder := capture.NewRecorder(44100, 2, 1, 0.1, 0.1)
	bg := bargein.New()
	sink := &fakeSink{}
	player := playback.New(sink, gate, bg)
	h := history.New(30, 20, nil)
	seg := segmenter.New(nil)
	voices := tts.NewSpeakerVoiceMap(orchestrator.VoiceF1)
	worker := tts.NewWorker(&mockTTSProvider{}, voices, "")

	a := NewSupervisor(SupervisorConfig{
		STT:        &mockSTT{transcript: transcript},
		LLM:        &mockLLM{response: response},
		TTSWorker:  worker,
		Gate:       gate,
		Recorder:   recorder,
		BargeIn:    bg,
		History:    h,
		Segmenter:  seg,
		Player:     player,
		SampleRate: 44100,
		Language:   orchestrator.LanguageEn,
	})
	return a, sink
}

func TestRunTurnSynthesizesAndPlaysResponse(t *testing.T) {
	a, sink := newTestAgent(t, "hello there", "[[/speaker_start]bot[/speaker_end]]hi back.\n[/say_end]")

	a.runTurn(context.Background(), make([]byte, 100))

	if sink.n == 0 {
		t.Fatal("expected synthesized audio to reach the playback sink")
	}

	msgs := a.history.MessagesForModel()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 history messages (user+assistant), got %d", len(msgs))
	}
	if msgs[0].Content != "hello there" {
		t.Errorf("unexpected user message: %q", msgs[0].Content)
	}
}

func TestRunTurnSkipsEmptyTranscript(t *testing.T) {
	a, sink := newTestAgent(t, "", "should not be reached")

	a.runTurn(context.Background(), make([]byte, 100))

	if sink.n != 0 {
		t.Fatalf("expected no playback for an empty transcript, got %d bytes", sink.n)
	}
	if len(a.history.MessagesForModel()) != 0 {
		t.Fatalf("expected no history entries for an empty transcript")
	}
}

func TestBuildRequestPrependsSystemPromptAndSkipsTimeHintOnFirstCall(t *testing.T) {
	a, _ := newTestAgent(t, "hi", "hello")
	a.systemPrompt = "you are a helpful assistant"

	msgs := a.buildRequest([]history.Message{{Role: "user", Content: "hi"}})

	if len(msgs) != 2 {
		t.Fatalf("expected system prompt + 1 turn, got %d messages", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != a.systemPrompt {
		t.Errorf("expected system prompt first, got %+v", msgs[0])
	}
}

func TestBuildRequestAddsTimeHintAfterLongGap(t *testing.T) {
	a, _ := newTestAgent(t, "hi", "hello")
	a.lastLLMCallAt = time.Now().Add(-11 * time.Minute)

	msgs := a.buildRequest([]history.Message{{Role: "user", Content: "hi"}})

	found := false
	for _, m := range msgs {
		if m.Role == "system" && strings.Contains(m.Content, "optional_time_hint") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a time-hint system message after an 11 minute gap, got %+v", msgs)
	}
}

func TestSetSensitivityForwardsToGate(t *testing.T) {
	a, _ := newTestAgent(t, "x", "y")
	a.SetSensitivity(0.9)
	time.Sleep(10 * time.Millisecond)
	if got := a.gate.Threshold(); got != 0.9 {
		t.Errorf("expected gate threshold 0.9, got %v", got)
	}
}
