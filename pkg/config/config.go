// Package config provides dotted-key configuration access backed by
// spf13/viper, grounded on lookatitude-beluga-ai's ViperProvider
// (pkg/config/providers/viper/viper_provider.go) and generalizing
// original_source/config_manager.py's ConfigManager.get("a.b.c", default)
// into typed Go accessors.
package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config wraps a viper instance preloaded with the agent's default tree, so
// a missing or partial config.yaml on disk still yields a runnable agent.
type Config struct {
	v *viper.Viper
}

// New reads configYAMLPath if it exists. A missing or malformed file is
// reported with a logged warning and the built-in defaults are used alone.
// Environment variables prefixed AGENT_ (dots replaced by underscores, e.g.
// AGENT_VAD_SENSITIVITY) override both.
func New(configYAMLPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(configYAMLPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			log.Printf("config: %s not found, using built-in defaults", configYAMLPath)
			return &Config{v: v}, nil
		}
		log.Printf("config: read %s: %v; using built-in defaults", configYAMLPath, err)
		return &Config{v: v}, nil
	}
	return &Config{v: v}, nil
}

// setDefaults mirrors original_source/config_manager.py's
// _create_default_config, translated key-for-key (speaker_voices dropped in
// favor of pkg/providers/tts.SpeakerVoiceMap, which is populated by the
// caller rather than read back out of viper).
func setDefaults(v *viper.Viper) {
	v.SetDefault("vad.sensitivity", 0.6)
	v.SetDefault("vad.play_sensitivity_factor", 0.2)

	v.SetDefault("asr.model_path", "resources/Belle-whisper-large-v3-turbo-zh")
	v.SetDefault("asr_prompt", "")

	v.SetDefault("silence_detection.silence_threshold", -50)
	v.SetDefault("silence_detection.min_silence_len", 1000)

	v.SetDefault("ollama.model", "gemma3:27b")
	v.SetDefault("ollama.max_history", 30)
	v.SetDefault("ollama.compress_interval", 20)

	v.SetDefault("audio.format", "paInt16")
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.rate", 16000)
	v.SetDefault("audio.chunk", 512)
	v.SetDefault("audio.silence_frame_threshold", 20)

	v.SetDefault("audio_similarity.similarity_threshold", 0.85)
	v.SetDefault("audio_similarity.silence_threshold", 0.01)
	v.SetDefault("audio_similarity.silence_ratio_threshold", 0.95)
	v.SetDefault("audio_similarity.fingerprint_size", 1024)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.file", "./logs/system.log")

	v.SetDefault("ai_prompts.system_role", "You are a helpful voice assistant speaking with {speaker_id}.")
	v.SetDefault("ai_prompts.speaking_format", "Respond in natural spoken language only, no markdown or special symbols.")
	v.SetDefault("ai_prompts.speaker_format", "Tag the speaker like '[[/speaker_start]name[/speaker_end]]content\n[/say_end]'.")
	v.SetDefault("ai_prompts.natural_response", "Keep responses brief and natural; tolerate ASR transcription errors.")
	v.SetDefault("ai_prompts.silence_if_irrelevant", "If the input is meaningless, reply with only None.")
	v.SetDefault("ai_prompts.silence_if_not_spoken_to", "If the user is not addressing you, reply with only None.")
	v.SetDefault("ai_prompts.time_context", "The current time is {current_time}.")

	v.SetDefault("worker_counter_start", 1)
}

// GetString returns a dotted-key string value.
func (c *Config) GetString(key string) string { return c.v.GetString(key) }

// GetInt returns a dotted-key int value.
func (c *Config) GetInt(key string) int { return c.v.GetInt(key) }

// GetFloat64 returns a dotted-key float value.
func (c *Config) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

// GetBool returns a dotted-key bool value.
func (c *Config) GetBool(key string) bool { return c.v.GetBool(key) }

// GetStringMapString returns a dotted-key map, e.g. ai_prompts.*.
func (c *Config) GetStringMapString(key string) map[string]string { return c.v.GetStringMapString(key) }

// IsSet reports whether key was set explicitly (by file, env, or default).
func (c *Config) IsSet(key string) bool { return c.v.IsSet(key) }

// UnmarshalKey decodes the subtree at key into out.
func (c *Config) UnmarshalKey(key string, out interface{}) error {
	return c.v.UnmarshalKey(key, out)
}

// BuildSystemPrompt assembles the ai_prompts.* templates into a single
// system-message prefix for a turn, interpolating {speaker_id} and
// {current_time}, matching config_manager.py's ai_prompts block (which the
// original joined into one system prompt at call time rather than storing
// it pre-rendered).
func (c *Config) BuildSystemPrompt(speakerID string, now time.Time) string {
	parts := []string{
		c.GetString("ai_prompts.system_role"),
		c.GetString("ai_prompts.speaking_format"),
		c.GetString("ai_prompts.speaker_format"),
		c.GetString("ai_prompts.natural_response"),
		c.GetString("ai_prompts.silence_if_irrelevant"),
		c.GetString("ai_prompts.silence_if_not_spoken_to"),
		c.GetString("ai_prompts.time_context"),
	}
	prompt := strings.Join(nonEmpty(parts), " ")
	prompt = strings.ReplaceAll(prompt, "{speaker_id}", speakerID)
	prompt = strings.ReplaceAll(prompt, "{current_time}", now.Format("2006-01-02 15:04"))
	return prompt
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
