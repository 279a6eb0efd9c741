package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/markdave123-py/kodeks/internal/core"
)

// RateLimitedEmbedder caps requests per minute across all callers.
type RateLimitedEmbedder struct {
	next    core.EmbeddingProvider
	limiter *rate.Limiter
}

func NewRateLimitedEmbedder(next core.EmbeddingProvider, perMinute int) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (l *RateLimitedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.EmbedTexts(ctx, texts)
}

func (l *RateLimitedEmbedder) Close() error { return closeNext(l.next) }
