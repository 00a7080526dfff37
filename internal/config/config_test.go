package config

import (
	"log/slog"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "LLM_PROVIDER", "MODEL_NAME",
		"ANTHROPIC_API_KEY", "LLM_BASE_URL", "REDIS_URL", "PLAYER_NAME", "WORLD_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LLMProvider != ProviderLocal {
		t.Errorf("Expected default provider %s, got %s", ProviderLocal, cfg.LLMProvider)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Errorf("Unexpected redis URL %s", cfg.RedisURL)
	}
	if cfg.PlayerName != "Player" {
		t.Errorf("Unexpected player name %s", cfg.PlayerName)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info log level, got %v", cfg.LogLevel)
	}
}

func TestLoad_ProviderValidation(t *testing.T) {
	clearEnv(t)

	t.Setenv("LLM_PROVIDER", "openrouter")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unsupported provider")
	}

	// Provider is case-insensitive.
	t.Setenv("LLM_PROVIDER", "MOCK")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLMProvider != ProviderMock {
		t.Errorf("Expected provider %s, got %s", ProviderMock, cfg.LLMProvider)
	}
}

func TestLoad_AnthropicRequiresKey(t *testing.T) {
	clearEnv(t)

	t.Setenv("LLM_PROVIDER", "anthropic")
	if _, err := Load(); err == nil {
		t.Error("Expected error when ANTHROPIC_API_KEY is missing")
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Errorf("Unexpected API key %q", cfg.AnthropicAPIKey)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
