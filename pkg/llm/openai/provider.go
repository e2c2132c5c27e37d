package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

var ErrMissingAPIKey = errors.New("openai api key is not configured")

type OpenAIProvider struct {
	ModelName string
	Defaults  llm.Options

	client *goopenai.Client
}

// Ensure OpenAIProvider implements LLMProvider.
var _ llm.LLMProvider = &OpenAIProvider{}

// NewOpenAIProvider creates a chat completion client. baseURL may point at any
// OpenAI compatible endpoint and is optional.
func NewOpenAIProvider(apiKey, baseURL, modelName string, defaults llm.Options, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if modelName == "" {
		modelName = goopenai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIProvider{
		ModelName: modelName,
		Defaults:  defaults,
		client:    goopenai.NewClientWithConfig(cfg),
	}, nil
}

func (o *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(o.Defaults, opts...)

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    roleOf(msg.Role),
			Content: msg.Content,
		})
	}

	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if options.Temperature > 0 {
		req.Temperature = float32(options.Temperature)
	}
	if options.MaxTokens > 0 {
		req.MaxCompletionTokens = options.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.Chat(ctx, []llm.Message{{Role: goopenai.ChatMessageRoleUser, Content: prompt}}, opts...)
}

func roleOf(role string) string {
	switch role {
	case "system":
		return goopenai.ChatMessageRoleSystem
	case "assistant":
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}
