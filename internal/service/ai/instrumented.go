package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/z-saga/backend/internal/metrics"
)

// Instrumented bounds each call with a timeout and records metrics and logs.
type Instrumented struct {
	next    Generator
	backend string
	timeout time.Duration
	logger  *zap.Logger
}

func NewInstrumented(next Generator, backend string, timeout time.Duration, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{next: next, backend: backend, timeout: timeout, logger: logger}
}

func (g *Instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Generate(ctx, prompt)
	elapsed := time.Since(start)
	metrics.GeneratorLatency.WithLabelValues(g.backend).Observe(elapsed.Seconds())

	if err != nil {
		status := "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = "timeout"
			err = fmt.Errorf("generation timed out after %s: %w", g.timeout, err)
		}
		metrics.GeneratorRequests.WithLabelValues(g.backend, status).Inc()
		g.logger.Warn("generation failed",
			zap.String("backend", g.backend),
			zap.String("status", status),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", err
	}

	metrics.GeneratorRequests.WithLabelValues(g.backend, "success").Inc()
	g.logger.Debug("generation finished",
		zap.String("backend", g.backend),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("reply_length", len(text)),
		zap.Duration("elapsed", elapsed))
	return text, nil
}
