package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice relay.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	HistoryDepth     int

	// Provider selection per endpoint role.
	TextProvider  string
	VoiceProvider string

	GeminiAPIKey    string
	GeminiChatModel string
	GeminiSTTModel  string
	GeminiSTTPrompt string
	GeminiTTSModel  string
	GeminiTTSVoice  string

	OpenAIAPIKey           string
	OpenAIModel            string
	OpenAISystemPromptFile string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "chapi"),
		ShutdownTimeout:  15 * time.Second,
		HistoryDepth:     10,
		TextProvider:     envOrDefault("TEXT_PROVIDER", "auto"),
		VoiceProvider:    envOrDefault("VOICE_PROVIDER", "auto"),
		GeminiAPIKey:     trimmedEnv("GEMINI_API_KEY"),
		GeminiChatModel:  envOrDefault("GEMINI_CHAT_MODEL", "gemini-2.5-flash"),
		GeminiSTTModel:   envOrDefault("GEMINI_STT_MODEL", "gemini-2.5-flash"),
		GeminiSTTPrompt:  trimmedEnv("GEMINI_STT_PROMPT"),
		GeminiTTSModel:   envOrDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiTTSVoice:   trimmedEnv("GEMINI_TTS_VOICE"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:      envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAISystemPromptFile: envOrDefault(
			"OPENAI_SYSTEM_PROMPT_FILE", "prompts/system_prompt.txt"),
		DatabaseURL: trimmedEnv("DATABASE_URL"),
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryDepth, err = intFromEnv("APP_HISTORY_DEPTH", cfg.HistoryDepth)
	if err != nil {
		return Config{}, err
	}

	if cfg.HistoryDepth <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_DEPTH must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
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
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
