package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion backend.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	SessionInactivityTimeout time.Duration
	WatchdogInterval         time.Duration

	DataDir     string
	DatabaseURL string

	SummaryThresholdChars int
	RecentWindow          int

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ChatModel       string
	TranscribeModel string

	ElevenLabsAPIKey   string
	ElevenLabsVoiceID  string
	ElevenLabsTTSModel string

	ClassifierBaseURL string

	RhubarbCLI string
	FFmpegCLI  string

	// ForceMock runs every provider in mock mode regardless of credentials.
	ForceMock bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("ALMA_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("ALMA_METRICS_NAMESPACE", "alma"),
		DataDir:          envOrDefault("ALMA_DATA_DIR", "data"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),

		OpenAIAPIKey:    stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:   envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:       envOrDefault("ALMA_CHAT_MODEL", "gpt-4o-mini"),
		TranscribeModel: envOrDefault("ALMA_TRANSCRIBE_MODEL", "whisper-1"),

		ElevenLabsAPIKey: stringsTrimSpace("ELEVENLABS_API_KEY"),
		// Default to a warm female premade voice.
		ElevenLabsVoiceID:  envOrDefault("ELEVENLABS_VOICE_ID", "cgSgspJ2msm6clMCkdW9"),
		ElevenLabsTTSModel: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_multilingual_v2"),

		ClassifierBaseURL: stringsTrimSpace("CLASSIFIER_BASE_URL"),

		RhubarbCLI: envOrDefault("RHUBARB_CLI", "rhubarb"),
		FFmpegCLI:  envOrDefault("FFMPEG_CLI", "ffmpeg"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 5 * time.Minute,
		WatchdogInterval:         30 * time.Second,
		SummaryThresholdChars:    10000,
		RecentWindow:             6,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("ALMA_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("ALMA_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WatchdogInterval, err = durationFromEnv("ALMA_WATCHDOG_INTERVAL", cfg.WatchdogInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SummaryThresholdChars, err = intFromEnv("ALMA_SUMMARY_THRESHOLD_CHARS", cfg.SummaryThresholdChars)
	if err != nil {
		return Config{}, err
	}
	cfg.RecentWindow, err = intFromEnv("ALMA_RECENT_WINDOW", cfg.RecentWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.ForceMock, err = boolFromEnv("ALMA_FORCE_MOCK", false)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("ALMA_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.WatchdogInterval < time.Second {
		return Config{}, fmt.Errorf("ALMA_WATCHDOG_INTERVAL must be at least 1s")
	}
	if cfg.SummaryThresholdChars <= 0 {
		return Config{}, fmt.Errorf("ALMA_SUMMARY_THRESHOLD_CHARS must be positive")
	}
	if cfg.RecentWindow <= 0 {
		return Config{}, fmt.Errorf("ALMA_RECENT_WINDOW must be positive")
	}

	return cfg, nil
}

// MissingCredentials lists the environment variables still needed before the
// real providers can serve replies. Empty in mock mode.
func (c Config) MissingCredentials() []string {
	if c.ForceMock {
		return nil
	}
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.ElevenLabsAPIKey == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	return missing
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
