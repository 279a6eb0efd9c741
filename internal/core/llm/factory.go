package llm

import (
	"context"
	"fmt"

	"github.com/markdave123-py/kodeks/internal/config"
	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
)

// NewEmbedder builds the configured provider wrapped in rate limiting (when
// embed_rpm is set) and retries. The result implements io.Closer.
func NewEmbedder(ctx context.Context, cfg *config.Config, log *logger.Logger) (core.EmbeddingProvider, error) {
	var base core.EmbeddingProvider
	switch cfg.EmbedProvider {
	case config.ProviderVoyage:
		base = NewVoyageEmbedder(cfg.VoyageAPIKey, cfg.EmbedModel, cfg.EmbedBaseURL, nil)
	case config.ProviderOpenAI:
		base = NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.EmbedBaseURL, cfg.EmbedDim)
	case config.ProviderGemini:
		g, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		base = g
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}

	if cfg.EmbedRPM > 0 {
		base = NewRateLimitedEmbedder(base, cfg.EmbedRPM)
	}
	log.Info("embedding provider ready", "provider", cfg.EmbedProvider, "model", cfg.EmbedModel, "rpm", cfg.EmbedRPM)
	return NewRetryingEmbedder(base, RetryConfig{
		MaxAttempts:    cfg.EmbedMaxAttempts,
		BaseDelay:      cfg.EmbedRetryBase,
		AttemptTimeout: cfg.EmbedTimeout,
	}, log.With("provider", cfg.EmbedProvider)), nil
}
