package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/zhouzirui/z-saga/backend/internal/config"
)

// OllamaGenerator uses a local Ollama server through its native chat API.
type OllamaGenerator struct {
	client  *api.Client
	model   string
	options map[string]interface{}
}

func NewOllamaGenerator(cfg config.AIConfig, httpClient *http.Client) (*OllamaGenerator, error) {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.OllamaHost, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", cfg.OllamaHost, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	options := map[string]interface{}{}
	if cfg.Temperature != nil {
		options["temperature"] = *cfg.Temperature
	}
	if cfg.TopP != nil {
		options["top_p"] = *cfg.TopP
	}
	if cfg.MaxTokens != nil {
		options["num_predict"] = *cfg.MaxTokens
	}

	return &OllamaGenerator{
		client:  api.NewClient(parsedURL, httpClient),
		model:   cfg.OllamaModel,
		options: options,
	}, nil
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: g.model,
		Messages: []api.Message{
			{Role: "system", Content: storytellerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Options: g.options,
	}

	var content strings.Builder
	err := g.client.Chat(ctx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}

	text := content.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
