package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/config"
)

var (
	// ErrNotConfigured is returned by the Unavailable generator.
	ErrNotConfigured = errors.New("generator not configured")
	// ErrEmptyResponse means the backend answered without any text.
	ErrEmptyResponse = errors.New("generator returned an empty response")
)

// storytellerSystemPrompt frames every request; the task itself travels in the user message.
const storytellerSystemPrompt = "You are a master storyteller of Turkic and Azerbaijani epics. Follow the requested response format exactly and write in English."

// Generator turns a prompt into raw reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator builds the backend selected by cfg.Provider wrapped with the
// timeout and metrics decorator. Missing credentials yield an Unavailable
// generator so the service still starts.
func NewGenerator(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Generator, error) {
	if !cfg.Enabled() {
		logger.Warn("generator credentials missing, story generation disabled",
			zap.String("provider", cfg.Provider))
		return NewUnavailable(fmt.Sprintf("provider %q is missing credentials or model", cfg.Provider)), nil
	}

	var (
		backend Generator
		err     error
	)
	switch cfg.Provider {
	case config.ProviderArk:
		backend, err = NewArkGenerator(ctx, cfg)
	case config.ProviderOllama:
		backend, err = NewOllamaGenerator(cfg, &http.Client{Timeout: cfg.Timeout + 5*time.Second})
	case config.ProviderOpenAI:
		backend, err = NewOpenAIGenerator(cfg, &http.Client{Timeout: cfg.Timeout + 5*time.Second})
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.Provider, err)
	}

	logger.Info("generator ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelName()),
		zap.Duration("timeout", cfg.Timeout))
	return NewInstrumented(backend, cfg.Provider, cfg.Timeout, logger), nil
}

// Configured reports whether g can produce text.
func Configured(g Generator) bool {
	_, unavailable := g.(*Unavailable)
	return g != nil && !unavailable
}

// Unavailable fails every request. It stands in when no backend is configured.
type Unavailable struct {
	reason string
}

func NewUnavailable(reason string) *Unavailable {
	return &Unavailable{reason: reason}
}

func (u *Unavailable) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrNotConfigured, u.reason)
}
