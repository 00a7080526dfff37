package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Supported LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
	ProviderMock      = "mock"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	LLMProvider     string
	ModelName       string
	AnthropicAPIKey string
	LLMBaseURL      string

	RedisURL string

	PlayerName string
	WorldFile  string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderLocal)),
		ModelName:       getEnv("MODEL_NAME", "local-model"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "http://localhost:1234"),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		PlayerName:      getEnv("PLAYER_NAME", "Player"),
		WorldFile:       os.Getenv("WORLD_FILE"),
	}

	switch cfg.LLMProvider {
	case ProviderAnthropic, ProviderLocal, ProviderMock:
	default:
		return nil, fmt.Errorf("invalid LLM provider %q (supported: %s, %s, %s)",
			cfg.LLMProvider, ProviderAnthropic, ProviderLocal, ProviderMock)
	}
	if cfg.LLMProvider == ProviderAnthropic && cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
