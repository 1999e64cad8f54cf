package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.SessionInactivityTimeout != 5*time.Minute {
		t.Fatalf("SessionInactivityTimeout = %v, want 5m", cfg.SessionInactivityTimeout)
	}
	if cfg.WatchdogInterval != 30*time.Second {
		t.Fatalf("WatchdogInterval = %v, want 30s", cfg.WatchdogInterval)
	}
	if cfg.SummaryThresholdChars != 10000 {
		t.Fatalf("SummaryThresholdChars = %d, want 10000", cfg.SummaryThresholdChars)
	}
	if cfg.RecentWindow != 6 {
		t.Fatalf("RecentWindow = %d, want 6", cfg.RecentWindow)
	}
	if cfg.ChatModel != "gpt-4o-mini" || cfg.TranscribeModel != "whisper-1" {
		t.Fatalf("models = %q/%q", cfg.ChatModel, cfg.TranscribeModel)
	}
	if cfg.RhubarbCLI != "rhubarb" || cfg.FFmpegCLI != "ffmpeg" {
		t.Fatalf("cli tools = %q/%q", cfg.RhubarbCLI, cfg.FFmpegCLI)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALMA_SESSION_INACTIVITY_TIMEOUT", "90s")
	t.Setenv("ALMA_WATCHDOG_INTERVAL", "10s")
	t.Setenv("ALMA_SUMMARY_THRESHOLD_CHARS", "2500")
	t.Setenv("ALMA_RECENT_WINDOW", "4")
	t.Setenv("ALMA_FORCE_MOCK", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionInactivityTimeout != 90*time.Second {
		t.Fatalf("SessionInactivityTimeout = %v", cfg.SessionInactivityTimeout)
	}
	if cfg.WatchdogInterval != 10*time.Second {
		t.Fatalf("WatchdogInterval = %v", cfg.WatchdogInterval)
	}
	if cfg.SummaryThresholdChars != 2500 || cfg.RecentWindow != 4 {
		t.Fatalf("summarizer knobs = %d/%d", cfg.SummaryThresholdChars, cfg.RecentWindow)
	}
	if !cfg.ForceMock {
		t.Fatalf("ForceMock = false")
	}
}

func TestLoadRejectsTooShortInactivity(t *testing.T) {
	t.Setenv("ALMA_SESSION_INACTIVITY_TIMEOUT", "2s")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted 2s inactivity timeout")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("ALMA_WATCHDOG_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() accepted unparsable duration")
	}
}

func TestMissingCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	missing := cfg.MissingCredentials()
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want both keys", missing)
	}

	t.Setenv("ALMA_FORCE_MOCK", "1")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.MissingCredentials(); len(got) != 0 {
		t.Fatalf("missing = %v in mock mode, want none", got)
	}
}
