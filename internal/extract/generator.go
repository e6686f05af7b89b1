// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/methodscan/pkg/types"
)

// Generator abstracts the text-generation service so tests can supply a
// mock. Implementations return the raw generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string, sampling types.SamplingConfig) (string, error)
}

// GenerationReason classifies an error reported by a generation service.
type GenerationReason string

const (
	ReasonAuth         GenerationReason = "authentication failed"
	ReasonRateLimit    GenerationReason = "rate limited"
	ReasonUnavailable  GenerationReason = "service unavailable"
	ReasonModelLoading GenerationReason = "model loading"
	ReasonOther        GenerationReason = "service error"
)

// GenerationError is an explicit error reported by the generation service,
// as opposed to a transport failure.
type GenerationError struct {
	Reason  GenerationReason
	Status  int
	Message string

	// EstimatedTime is the service's estimate, in seconds, until a loading
	// model becomes available. Zero when not reported.
	EstimatedTime float64
}

func (e *GenerationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation service: %s (status %d)", e.Reason, e.Status)
	}
	return fmt.Sprintf("generation service: %s (status %d): %s", e.Reason, e.Status, e.Message)
}

// Retryable reports whether repeating the call can succeed without
// intervention.
func (e *GenerationError) Retryable() bool {
	return e.Reason == ReasonModelLoading
}

// classifyStatus maps an HTTP status to a GenerationReason. loading is true
// when the service said the model is still being loaded.
func classifyStatus(status int, loading bool) GenerationReason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusTooManyRequests:
		return ReasonRateLimit
	case status == http.StatusServiceUnavailable && loading:
		return ReasonModelLoading
	case status >= 500:
		return ReasonUnavailable
	}
	return ReasonOther
}

// modelLoadingDelay is the wait before the single retry of a model-loading
// error. Tests override it to avoid real sleeps.
var modelLoadingDelay = 10 * time.Second

// RetryingGenerator retries a call once when the service reports that the
// model is still loading. Every other error is returned unchanged.
type RetryingGenerator struct {
	Next   Generator
	Logger *zap.Logger
}

// Generate calls Next, retrying once on a model-loading error.
func (g *RetryingGenerator) Generate(ctx context.Context, prompt string, sampling types.SamplingConfig) (string, error) {
	out, err := g.Next.Generate(ctx, prompt, sampling)
	var gerr *GenerationError
	if err == nil || !errors.As(err, &gerr) || !gerr.Retryable() {
		return out, err
	}

	if g.Logger != nil {
		g.Logger.Info("model loading, retrying once",
			zap.Duration("delay", modelLoadingDelay),
			zap.Float64("estimated_time", gerr.EstimatedTime))
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(modelLoadingDelay):
	}
	return g.Next.Generate(ctx, prompt, sampling)
}

// NewGenerator builds the generator selected by cfg.Backend, wrapped in a
// RetryingGenerator. A nil client gets one bounded by cfg.Timeout.
func NewGenerator(cfg types.AIConfig, client *http.Client, logger *zap.Logger) (Generator, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var gen Generator
	switch cfg.Backend {
	case types.GeneratorHuggingFace, "":
		gen = &HuggingFaceGenerator{APIKey: cfg.APIKey, Model: cfg.Model, Client: client, WaitForModel: cfg.WaitForModel}
	case types.GeneratorClaude:
		gen = &ClaudeGenerator{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
	}
	return &RetryingGenerator{Next: gen, Logger: logger}, nil
}
