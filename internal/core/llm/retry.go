package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
)

type RetryConfig struct {
	MaxAttempts int
	// BaseDelay is the backoff unit. A 429 waits 2^attempt units, a
	// transport failure attempt+1 units.
	BaseDelay time.Duration
	// AttemptTimeout bounds each call. Zero disables it.
	AttemptTimeout time.Duration
}

// RetryingEmbedder retries rate limits and transport failures. Any other
// non-2xx status fails at once.
type RetryingEmbedder struct {
	next  core.EmbeddingProvider
	cfg   RetryConfig
	log   *logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryingEmbedder(next core.EmbeddingProvider, cfg RetryConfig, log *logger.Logger) *RetryingEmbedder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	return &RetryingEmbedder{next: next, cfg: cfg, log: log, sleep: sleepCtx}
}

func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		vecs, err := r.once(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		var wait time.Duration
		var se *StatusError
		switch {
		case errors.As(err, &se) && se.IsRateLimited():
			wait = r.cfg.BaseDelay * time.Duration(1<<attempt)
		case errors.As(err, &se):
			return nil, err
		default:
			wait = r.cfg.BaseDelay * time.Duration(attempt+1)
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		r.log.Warn("embedding request failed, retrying",
			"attempt", attempt+1, "max_attempts", r.cfg.MaxAttempts, "sleep", wait, "texts", len(texts), "error", err)
		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}

// once makes a single attempt. A rate limit gate directly below is waited
// on with ctx, so queueing for it does not count against AttemptTimeout.
func (r *RetryingEmbedder) once(ctx context.Context, texts []string) ([][]float32, error) {
	next := r.next
	if g, ok := next.(*RateLimitedEmbedder); ok {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		next = g.next
	}
	if r.cfg.AttemptTimeout <= 0 {
		return next.EmbedTexts(ctx, texts)
	}
	actx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()
	return next.EmbedTexts(actx, texts)
}

func (r *RetryingEmbedder) Close() error { return closeNext(r.next) }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func closeNext(p core.EmbeddingProvider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
