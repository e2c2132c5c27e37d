package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_STORE", "")
	t.Setenv("RESEARCH_STEP_BUDGET", "not-a-number")

	cfg := Load()

	assert.Equal(t, "gpt-4o-mini", cfg.Ai.LLMModel)
	assert.Equal(t, 0.2, cfg.Ai.Temperature)
	assert.Equal(t, 2000, cfg.Ai.MaxTokens)
	assert.Equal(t, 10, cfg.Research.MaxSearchResults)
	assert.Equal(t, 20, cfg.Research.StepBudget)
	assert.Equal(t, "", cfg.Session.Store)
	assert.Equal(t, 2*time.Minute, cfg.Session.LockTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("SEARCH_TIMEOUT", "5")
	t.Setenv("PARSE_TIMEOUT", "1m30s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("SEARCH_RATE_PER_SECOND", "2.5")
	t.Setenv("SESSION_LOCK_TTL", "30s")

	cfg := Load()

	assert.Equal(t, "ollama", cfg.Ai.LLMProvider)
	assert.Equal(t, 5*time.Second, cfg.Research.SearchTimeout)
	assert.Equal(t, 90*time.Second, cfg.Research.ParseTimeout)
	assert.True(t, cfg.Otel.Enabled)
	assert.Equal(t, 2.5, cfg.Research.SearchRatePerSecond)
	assert.Equal(t, 30*time.Second, cfg.Session.LockTTL)
}
