package factory

import (
	"fmt"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm/ollama"
	"github.com/Dots-Uzbekistan/Lexora/pkg/llm/openai"
)

// Config selects and parameterizes a provider.
type Config struct {
	Provider    string // "openai" | "ollama" | "none"
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewLLMProvider builds the configured provider. It returns a nil provider
// and no error for "none" or an empty provider name; callers fall back to
// deterministic templates in that case.
func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	defaults := llm.Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		p, err := openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, defaults, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model, defaults, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
