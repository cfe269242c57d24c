package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewMissingFileFallsBackToDefaults(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.GetFloat64("vad.sensitivity"); got != 0.6 {
		t.Errorf("expected default vad.sensitivity 0.6, got %v", got)
	}
	if got := c.GetInt("ollama.compress_interval"); got != 20 {
		t.Errorf("expected default ollama.compress_interval 20, got %v", got)
	}
}

func TestNewOverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "vad:\n  sensitivity: 0.8\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.GetFloat64("vad.sensitivity"); got != 0.8 {
		t.Errorf("expected overridden vad.sensitivity 0.8, got %v", got)
	}
	if got := c.GetFloat64("vad.play_sensitivity_factor"); got != 0.2 {
		t.Errorf("expected untouched default 0.2, got %v", got)
	}
}

func TestIsSet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !c.IsSet("logging.level") {
		t.Error("expected logging.level to be set via default")
	}
}

func TestBuildSystemPromptInterpolatesSpeakerAndTime(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	prompt := c.BuildSystemPrompt("alex", now)

	if !strings.Contains(prompt, "alex") {
		t.Errorf("expected prompt to contain speaker id, got %q", prompt)
	}
	if !strings.Contains(prompt, "2026-07-31 09:30") {
		t.Errorf("expected prompt to contain formatted time, got %q", prompt)
	}
	if strings.Contains(prompt, "{speaker_id}") || strings.Contains(prompt, "{current_time}") {
		t.Errorf("expected all placeholders replaced, got %q", prompt)
	}
}
