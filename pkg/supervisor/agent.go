package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashwave/voxbridge/pkg/bargein"
	"github.com/hashwave/voxbridge/pkg/capture"
	"github.com/hashwave/voxbridge/pkg/history"
	"github.com/hashwave/voxbridge/pkg/orchestrator"
	llmpkg "github.com/hashwave/voxbridge/pkg/providers/llm"
	ttspkg "github.com/hashwave/voxbridge/pkg/providers/tts"
	"github.com/hashwave/voxbridge/pkg/playback"
	"github.com/hashwave/voxbridge/pkg/segmenter"
	"github.com/hashwave/voxbridge/pkg/vad"
)

// timeHintGap is how long must pass since the last LLM call before a turn's
// request gets a time-hint system message prepended, matching
// ollama_stream.py's last_time/timedelta(minutes=10) gating.
const timeHintGap = 10 * time.Minute

// Supervisor owns one turn's worth of state (capture -> VAD gate -> STT ->
// history -> LLM -> segmenter -> TTS worker -> playback) and coordinates
// barge-in across all of them. It is built from the standalone pkg/vad,
// pkg/capture, pkg/segmenter, pkg/history, pkg/bargein and pkg/playback
// packages rather than reimplementing that wiring inline; pkg/orchestrator
// contributes only the provider interfaces and shared vocabulary (messages,
// voices, languages, events) these packages are typed against.
type Supervisor struct {
	stt    orchestrator.STTProvider
	llm    orchestrator.LLMProvider
	stream llmpkg.StreamingLLMProvider // non-nil when llm supports Stream

	ttsWorker *ttspkg.Worker

	gate     *vad.Gate
	recorder *capture.Recorder
	bg       *bargein.Controller
	history  *history.Store
	seg      *segmenter.Segmenter
	player   *playback.Player

	sampleRate          int
	lang                orchestrator.Language
	minWordsToInterrupt int
	logger              orchestrator.Logger

	systemPrompt string
	speakerID    string

	mu            sync.Mutex
	lastLLMCallAt time.Time

	events chan orchestrator.OrchestratorEvent
}

// SupervisorConfig bundles a Supervisor's dependencies, all of which are already
// independently testable packages.
type SupervisorConfig struct {
	STT                 orchestrator.STTProvider
	LLM                 orchestrator.LLMProvider
	TTSWorker           *ttspkg.Worker
	Gate                *vad.Gate
	Recorder            *capture.Recorder
	BargeIn             *bargein.Controller
	History             *history.Store
	Segmenter           *segmenter.Segmenter
	Player              *playback.Player
	SampleRate          int
	Language            orchestrator.Language
	MinWordsToInterrupt int
	Logger              orchestrator.Logger

	// SystemPrompt, typically built via config.Config.BuildSystemPrompt,
	// is prepended to every turn's message list as a system role message.
	SystemPrompt string
	SpeakerID    string
}

func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	a := &Supervisor{
		stt:                 cfg.STT,
		llm:                 cfg.LLM,
		ttsWorker:           cfg.TTSWorker,
		gate:                cfg.Gate,
		recorder:            cfg.Recorder,
		bg:                  cfg.BargeIn,
		history:             cfg.History,
		seg:                 cfg.Segmenter,
		player:              cfg.Player,
		sampleRate:          cfg.SampleRate,
		lang:                cfg.Language,
		minWordsToInterrupt: cfg.MinWordsToInterrupt,
		logger:              logger,
		systemPrompt:        cfg.SystemPrompt,
		speakerID:           cfg.SpeakerID,
		events:              make(chan orchestrator.OrchestratorEvent, 256),
	}
	if sllm, ok := cfg.LLM.(llmpkg.StreamingLLMProvider); ok {
		a.stream = sllm
	}
	return a
}

// SetSensitivity satisfies supervisor.CommandSink, forwarding to the VAD
// gate so an operator can retune it live from the stdin command loop.
func (a *Supervisor) SetSensitivity(value float64) {
	a.gate.SetSensitivity(value)
}

// Events exposes turn-level notifications for a CLI or UI to render.
func (a *Supervisor) Events() <-chan orchestrator.OrchestratorEvent {
	return a.events
}

func (a *Supervisor) emit(t orchestrator.EventType, data interface{}) {
	select {
	case a.events <- orchestrator.OrchestratorEvent{Type: t, Data: data}:
	default:
	}
}

// WriteAudio feeds one chunk of mic PCM through the VAD gate, accumulating
// it in the lead-buffered recorder and triggering a turn when speech ends.
// Call from the capture device's callback.
func (a *Supervisor) WriteAudio(ctx context.Context, chunk []byte) {
	event := a.gate.Process(chunk)

	if event != nil && event.Type == vad.SpeechStart && a.player != nil {
		// Bot speaking while the user starts talking: raise barge-in so
		// PlayAll's poll loop drains the queue within one tick.
		a.bg.Raise()
		TurnsActive.Set(0)
		BargeInsTotal.Inc()
		a.emit(orchestrator.Interrupted, nil)
	}

	a.recorder.Write(chunk, a.gate.IsSpeaking())

	if event != nil && event.Type == vad.SpeechEnd {
		utterance := a.recorder.TakeUtterance()
		a.bg.Reset()
		go a.runTurn(ctx, utterance.PCM)
	}
}

func (a *Supervisor) runTurn(ctx context.Context, pcm []byte) {
	TurnsActive.Inc()
	defer TurnsActive.Dec()
	TurnsTotal.Inc()

	stopASR := StageTimer(StageASR)
	transcript, err := a.stt.Transcribe(ctx, pcm, a.lang)
	stopASR()
	if err != nil {
		a.logger.Error(LogStageError(StageASR, err))
		return
	}
	if transcript == "" {
		return
	}

	a.history.Append("user", transcript)
	if err := a.history.MaybeCompress(ctx); err != nil {
		a.logger.Warn("history compression failed", "error", err)
	}

	messages := a.buildRequest(a.history.MessagesForModel())

	stopLLM := StageTimer(StageLLM)
	fullText, err := a.respond(ctx, messages)
	stopLLM()
	if err != nil {
		a.logger.Error(LogStageError(StageLLM, err))
		return
	}
	if fullText != "" {
		a.history.Append("assistant", fullText)
	}
}

// respond drives the LLM (streaming when available), feeding text into the
// segmenter as it arrives and synthesizing+queuing each finished segment,
// then plays the whole queue back once the response is complete. Returns
// the full assistant text for history bookkeeping.
func (a *Supervisor) respond(ctx context.Context, messages []orchestrator.Message) (string, error) {
	var fullText string
	var segments []segmenter.Segment

	if a.stream != nil {
		chunks, errc := a.stream.Stream(ctx, messages)
		for chunk := range chunks {
			if chunk.Kind != llmpkg.ChunkResponse {
				continue
			}
			fullText += chunk.Text
			segments = append(segments, a.seg.Push(chunk.Text)...)
			if a.bg.Raised() {
				break
			}
		}
		if err := <-errc; err != nil {
			return fullText, err
		}
	} else {
		text, err := a.llm.Complete(ctx, messages)
		if err != nil {
			return "", err
		}
		fullText = text
		segments = a.seg.Push(text)
	}
	segments = append(segments, a.seg.Flush()...)

	stopTTS := StageTimer(StageTTS)
	for _, seg := range segments {
		if a.bg.Raised() {
			break
		}
		if seg.Kind != segmenter.KindSpeech || seg.Content == "" {
			continue
		}
		pcm, _, err := a.ttsWorker.Synthesize(ctx, seg.Content, seg.Speaker, a.lang, a.sampleRate)
		if err != nil {
			a.logger.Error(LogStageError(StageTTS, err))
			continue
		}
		a.player.Enqueue(pcm)
	}
	stopTTS()

	if a.player != nil {
		stopPlayback := StageTimer(StagePlayback)
		if err := a.player.PlayAll(); err != nil {
			stopPlayback()
			return fullText, fmt.Errorf("playback: %w", err)
		}
		stopPlayback()
	}

	return fullText, nil
}

func toOrchestratorMessages(in []history.Message) []orchestrator.Message {
	out := make([]orchestrator.Message, len(in))
	for i, m := range in {
		out[i] = orchestrator.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// buildRequest prepends the configured system prompt and, when more than
// timeHintGap has passed since the previous call, a time-hint message
// noting the current time so the model can account for the gap.
func (a *Supervisor) buildRequest(turns []history.Message) []orchestrator.Message {
	var prefix []orchestrator.Message
	if a.systemPrompt != "" {
		prefix = append(prefix, orchestrator.Message{Role: "system", Content: a.systemPrompt})
	}

	now := time.Now()
	a.mu.Lock()
	last := a.lastLLMCallAt
	a.lastLLMCallAt = now
	a.mu.Unlock()
	if !last.IsZero() && now.Sub(last) > timeHintGap {
		prefix = append(prefix, orchestrator.Message{
			Role:    "system",
			Content: fmt.Sprintf("optional_time_hint: it has been a while since the last turn; the current time is %s.", now.Format("2006-01-02 15:04")),
		})
	}

	return append(prefix, toOrchestratorMessages(turns)...)
}
