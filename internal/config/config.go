package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultGeminiModel = "gemini-2.5-flash"
	defaultOpenAIModel = "gpt-4.1-mini"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Environment
	Environment string
	Port        int

	// Audio
	SampleRate   int
	MasterVolume float64
	LeadIn       time.Duration

	// Persistence
	StatePath string
	Autosave  time.Duration

	// Composition
	Provider     string
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string

	// Observability
	SentryDSN string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	cfg := Config{
		Environment: envStr("ENVIRONMENT", "development"),
		Port:        envInt("PORT", 8080),

		SampleRate:   envInt("SKYLINE_SAMPLE_RATE", 48000),
		MasterVolume: envFloat("SKYLINE_MASTER_VOLUME", 0.8),
		LeadIn:       time.Duration(envInt("SKYLINE_LEAD_IN_MS", 50)) * time.Millisecond,

		StatePath: envStr("SKYLINE_STATE_PATH", "skyline-state.json"),
		Autosave:  time.Duration(envInt("SKYLINE_AUTOSAVE_MS", 1000)) * time.Millisecond,

		Provider:     strings.ToLower(envStr("SKYLINE_PROVIDER", ProviderGemini)),
		Model:        envStr("SKYLINE_MODEL", ""),
		GeminiAPIKey: envStr("GEMINI_API_KEY", ""),
		OpenAIAPIKey: envStr("OPENAI_API_KEY", ""),

		SentryDSN: envStr("SENTRY_DSN", ""),
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	return cfg
}

// DefaultModel is the model used for a provider when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultGeminiModel
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
