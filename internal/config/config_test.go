package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "LLM_PROVIDER", "LLM_TOP_K", "GATE_COOLDOWN_MS", "JWT_SECRET", "OTEL_ENABLED"} {
		// Setenv restores the original value after the test.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "gemini", cfg.Ai.LLMProvider)
	assert.Empty(t, cfg.App.JwtSecret)
	assert.Equal(t, 40, cfg.Ai.TopK)
	assert.Equal(t, 0.95, cfg.Ai.TopP)
	assert.Equal(t, 500*time.Millisecond, cfg.Voice.GateCooldown)
	assert.False(t, cfg.App.OtelEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "NATS")
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("LLM_TEMPERATURE", "0.4")
	t.Setenv("LLM_TOP_K", "not-a-number")
	t.Setenv("GATE_COOLDOWN_MS", "250")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("GO_ENV", "production")

	cfg := Load()

	assert.Equal(t, "nats", cfg.Store.Driver)
	assert.Equal(t, "ollama", cfg.Ai.LLMProvider)
	assert.Equal(t, 0.4, cfg.Ai.Temperature)
	assert.Equal(t, 40, cfg.Ai.TopK, "unparsable values fall back")
	assert.Equal(t, 250*time.Millisecond, cfg.Voice.GateCooldown)
	assert.True(t, cfg.App.OtelEnabled)
	assert.True(t, cfg.IsProduction())
}
