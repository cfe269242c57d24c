package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cfgpkg "github.com/hashwave/voxbridge/pkg/config"
	logpkg "github.com/hashwave/voxbridge/pkg/logging"
	"github.com/hashwave/voxbridge/pkg/orchestrator"
	llmProvider "github.com/hashwave/voxbridge/pkg/providers/llm"
	sttProvider "github.com/hashwave/voxbridge/pkg/providers/stt"
	ttsProvider "github.com/hashwave/voxbridge/pkg/providers/tts"

	"github.com/hashwave/voxbridge/pkg/bargein"
	"github.com/hashwave/voxbridge/pkg/capture"
	"github.com/hashwave/voxbridge/pkg/history"
	"github.com/hashwave/voxbridge/pkg/playback"
	"github.com/hashwave/voxbridge/pkg/segmenter"
	"github.com/hashwave/voxbridge/pkg/supervisor"
	"github.com/hashwave/voxbridge/pkg/vad"
)

const (
	SampleRate = 44100
	Channels   = 1
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, using system environment variables")
	}

	configPath := os.Getenv("AGENT_CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := cfgpkg.New(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logpkg.NewDevelopment()
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logger.Sync()

	if metricsAddr := os.Getenv("METRICS_ADDR"); metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("metrics server listening", "addr", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	groqKey := os.Getenv("GROQ_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	googleKey := os.Getenv("GOOGLE_API_KEY")
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	assemblyKey := os.Getenv("ASSEMBLYAI_API_KEY")
	lokutorKey := os.Getenv("LOKUTOR_API_KEY")

	sttProviderName := os.Getenv("STT_PROVIDER")
	if sttProviderName == "" {
		sttProviderName = "groq"
	}
	llmProviderName := os.Getenv("LLM_PROVIDER")
	if llmProviderName == "" {
		llmProviderName = "groq"
	}

	lang := orchestrator.Language(os.Getenv("AGENT_LANGUAGE"))
	if lang == "" {
		lang = orchestrator.LanguageEn
	}

	if lokutorKey == "" {
		log.Fatal("Error: LOKUTOR_API_KEY must be set.")
	}

	var stt orchestrator.STTProvider
	switch sttProviderName {
	case "openai":
		if openaiKey == "" {
			log.Fatal("Error: OPENAI_API_KEY must be set for openai STT")
		}
		stt = sttProvider.NewOpenAISTT(openaiKey, "whisper-1")
	case "deepgram":
		if deepgramKey == "" {
			log.Fatal("Error: DEEPGRAM_API_KEY must be set for deepgram STT")
		}
		stt = sttProvider.NewDeepgramSTT(deepgramKey)
	case "deepgram-stream":
		if deepgramKey == "" {
			log.Fatal("Error: DEEPGRAM_API_KEY must be set for deepgram-stream STT")
		}
		stt = sttProvider.NewDeepgramStreamingSTT(deepgramKey)
	case "assemblyai":
		if assemblyKey == "" {
			log.Fatal("Error: ASSEMBLYAI_API_KEY must be set for assemblyai STT")
		}
		stt = sttProvider.NewAssemblyAISTT(assemblyKey)
	case "groq":
		fallthrough
	default:
		if groqKey == "" {
			log.Fatal("Error: GROQ_API_KEY must be set for groq STT")
		}
		groqModel := os.Getenv("GROQ_STT_MODEL")
		if groqModel == "" {
			groqModel = "whisper-large-v3-turbo"
		}
		stt = sttProvider.NewGroqSTT(groqKey, groqModel)
	}

	if s, ok := stt.(interface{ SetSampleRate(int) }); ok {
		s.SetSampleRate(SampleRate)
	}

	var llm orchestrator.LLMProvider
	switch llmProviderName {
	case "openai":
		if openaiKey == "" {
			log.Fatal("Error: OPENAI_API_KEY must be set for openai LLM")
		}
		llm = llmProvider.NewOpenAILLM(openaiKey, "gpt-4o")
	case "anthropic":
		if anthropicKey == "" {
			log.Fatal("Error: ANTHROPIC_API_KEY must be set for anthropic LLM")
		}
		llm = llmProvider.NewAnthropicLLM(anthropicKey, "claude-3-5-sonnet-20241022")
	case "google":
		if googleKey == "" {
			log.Fatal("Error: GOOGLE_API_KEY must be set for google LLM")
		}
		llm = llmProvider.NewGoogleLLM(googleKey, "gemini-1.5-flash")
	case "groq":
		fallthrough
	default:
		if groqKey == "" {
			log.Fatal("Error: GROQ_API_KEY must be set for groq LLM")
		}
		llm = llmProvider.NewGroqLLM(groqKey, "llama-3.3-70b-versatile")
	}

	fmt.Printf("Configured: STT=%s | LLM=%s | TTS=Lokutor\n", sttProviderName, llmProviderName)
	fmt.Printf("VAD sensitivity: %.3f | Sample Rate: %dHz | Language: %s\n", cfg.GetFloat64("vad.sensitivity"), SampleRate, lang)
	fmt.Println("Voice Supervisor Started! Listening to microphone...")
	fmt.Println("Press Ctrl+C to exit, or type v<float> to retune VAD sensitivity")

	tts := ttsProvider.NewLokutorTTS(lokutorKey)
	voices := ttsProvider.NewSpeakerVoiceMap(orchestrator.VoiceF1)
	ttsWorker := ttsProvider.NewWorker(tts, voices, os.Getenv("TTS_CACHE_DIR"))

	detector := vad.NewRMSDetector(7, 500*time.Millisecond)
	gate := vad.NewGate(detector, cfg.GetFloat64("vad.sensitivity"), cfg.GetFloat64("vad.play_sensitivity_factor"))
	defer gate.Close()

	recorder := capture.NewRecorder(SampleRate, 2, Channels, 2.0, 1.5)
	bg := bargein.New()
	sink := &playback.BufferedSink{}
	player := playback.New(sink, gate, bg)
	seg := segmenter.New(nil)

	histPath := os.Getenv("HISTORY_FILE")
	if histPath == "" {
		histPath = "history.json"
	}
	hist := history.New(cfg.GetInt("ollama.max_history"), cfg.GetInt("ollama.compress_interval"), llmSummarizer{llm})
	if err := hist.Load(histPath); err != nil {
		logger.Warn("failed to load history", "error", err)
	}
	defer hist.Save(histPath)

	speakerID := os.Getenv("AGENT_SPEAKER_ID")
	if speakerID == "" {
		speakerID = "user"
	}

	agent := supervisor.NewSupervisor(supervisor.SupervisorConfig{
		STT:                 stt,
		LLM:                 llm,
		TTSWorker:           ttsWorker,
		Gate:                gate,
		Recorder:            recorder,
		BargeIn:             bg,
		History:             hist,
		Segmenter:           seg,
		Player:              player,
		SampleRate:          SampleRate,
		Language:            lang,
		MinWordsToInterrupt: 1,
		Logger:              logger,
		SystemPrompt:        cfg.BuildSystemPrompt(speakerID, time.Now()),
		SpeakerID:           speakerID,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := supervisor.CommandLoop(ctx, os.Stdin, agent)

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer mctx.Uninit()

	onSamples := func(pOutput, pInput []byte, frameCount uint32) {
		if pInput != nil {
			agent.WriteAudio(ctx, pInput)
		}
		if pOutput != nil {
			sink.Read(pOutput)
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = Channels
	deviceConfig.SampleRate = SampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.Fatal(err)
	}

	go func() {
		for event := range agent.Events() {
			switch event.Type {
			case orchestrator.Interrupted:
				fmt.Printf("\r\033[K[INTERRUPTED] User started talking.\n")
			case orchestrator.ErrorEvent:
				fmt.Printf("\r\033[K[ERROR] %v\n", event.Data)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
	case <-quit:
		fmt.Println("\nquit command received")
	}
	fmt.Printf("\nShutting down...\n")
}

// llmSummarizer adapts an orchestrator.LLMProvider into history.Summarizer,
// reusing the same backend that drives conversation responses to also
// compact old turns into a single system message.
type llmSummarizer struct {
	llm orchestrator.LLMProvider
}

func (s llmSummarizer) Summarize(ctx context.Context, messages []history.Message) (string, error) {
	var prompt string
	prompt = "Summarize the following conversation turns in one or two sentences, preserving names and facts:\n"
	for _, m := range messages {
		prompt += m.Role + ": " + m.Content + "\n"
	}
	return s.llm.Complete(ctx, []orchestrator.Message{{Role: "user", Content: prompt}})
}
