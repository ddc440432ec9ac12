package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-saga/backend/internal/config"
)

func TestOpenAIGeneratorSendsPrompt(t *testing.T) {
	var received struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gemini-2.0-flash",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Text: The road splits."}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	temperature := 0.5
	gen, err := NewOpenAIGenerator(config.AIConfig{
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: server.URL + "/v1",
		OpenAIModel:   "gemini-2.0-flash",
		Temperature:   &temperature,
	}, server.Client())
	require.NoError(t, err)

	text, err := gen.Generate(t.Context(), "tell me a story")
	require.NoError(t, err)
	assert.Equal(t, "Text: The road splits.", text)

	assert.Equal(t, "gemini-2.0-flash", received.Model)
	assert.InDelta(t, 0.5, received.Temperature, 1e-6)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Equal(t, "user", received.Messages[1].Role)
	assert.Equal(t, "tell me a story", received.Messages[1].Content)
}

func TestOpenAIGeneratorEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator(config.AIConfig{
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: server.URL,
		OpenAIModel:   "m",
	}, server.Client())
	require.NoError(t, err)

	_, err = gen.Generate(t.Context(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIGeneratorHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	gen, err := NewOpenAIGenerator(config.AIConfig{
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: server.URL,
		OpenAIModel:   "m",
	}, server.Client())
	require.NoError(t, err)

	_, err = gen.Generate(t.Context(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(config.AIConfig{OpenAIModel: "m"}, nil)
	assert.Error(t, err)
}
