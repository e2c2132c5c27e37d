package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dots-Uzbekistan/Lexora/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Ответ"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3", llm.Options{Temperature: 0.2, MaxTokens: 500}, 0)
	out, err := p.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "Ты юрист"},
		{Role: "user", Content: "Вопрос"},
	}, llm.WithModel("qwen"))
	require.NoError(t, err)

	assert.Equal(t, "Ответ", out)
	assert.Equal(t, "qwen", got.Model)
	assert.Len(t, got.Messages, 2)
	assert.InDelta(t, 0.2, got.Options.Temperature, 1e-9)
	assert.Equal(t, 500, got.Options.NumPredict)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing", llm.Options{}, 0)
	_, err := p.Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "status 404")
}
