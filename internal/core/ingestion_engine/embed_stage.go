package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
	"github.com/markdave123-py/kodeks/internal/models"
)

// EmbedStats reports what happened to one table's records during embedding.
type EmbedStats struct {
	Table    string `json:"table"`
	Records  int    `json:"records"`
	Eligible int    `json:"eligible"`
	Skipped  int    `json:"skipped"`
	Tokens   int    `json:"tokens"`
	Batches  int    `json:"batches"`
	Embedded int    `json:"embedded"`
	Failed   int    `json:"failed"`
}

// EmbedStage sends records to an embedding provider in planned batches.
type EmbedStage struct {
	provider    core.EmbeddingProvider
	log         *logger.Logger
	maxItems    int
	maxTokens   int
	concurrency int
}

func NewEmbedStage(provider core.EmbeddingProvider, cfg *IngestConfig, log *logger.Logger) *EmbedStage {
	return &EmbedStage{
		provider:    provider,
		log:         log,
		maxItems:    cfg.MaxBatchItems,
		maxTokens:   cfg.MaxBatchTokens,
		concurrency: max(cfg.Concurrency, 1),
	}
}

// EmbeddingInput is the text sent to the model for a record: structural labels
// followed by the cleaned text, joined with ". ". Status tags are not labels.
func EmbeddingInput(r models.Record) string {
	parts := make([]string, 0, 4)
	if r.ArtNo != "" {
		parts = append(parts, "Artykuł "+r.ArtNo)
	}
	if r.ParNo.IsValue() {
		parts = append(parts, "Paragraf "+r.ParNo.Value)
	}
	if r.PktNo.IsValue() {
		parts = append(parts, "Punkt "+r.PktNo.Value)
	}
	text := r.TextClean
	if text == "" {
		text = r.Text
	}
	if text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, ". ")
}

// Eligible returns the records at or above minTokens and their total tokens.
func Eligible(records []models.Record, minTokens int) ([]models.Record, int) {
	var (
		out    []models.Record
		tokens int
	)
	for _, r := range records {
		if r.TokenCount >= minTokens {
			out = append(out, r)
			tokens += r.TokenCount
		}
	}
	return out, tokens
}

// Run embeds the records with at least minTokens tokens and returns every
// input record, in input order. Records that were skipped or whose batch
// failed come back with a nil Embedding. Only cancellation aborts the run.
func (s *EmbedStage) Run(ctx context.Context, table string, records []models.Record, minTokens int) ([]models.Record, EmbedStats, error) {
	eligible, tokens := Eligible(records, minTokens)
	stats := EmbedStats{
		Table:    table,
		Records:  len(records),
		Eligible: len(eligible),
		Skipped:  len(records) - len(eligible),
		Tokens:   tokens,
	}
	log := s.log.With("table", table)
	if stats.Skipped > 0 {
		log.Info("skipping short records", "skipped", stats.Skipped, "min_tokens", minTokens)
	}

	batches := PlanBatches(eligible, s.maxItems, s.maxTokens)
	stats.Batches = len(batches)
	log.Info("embedding records", "records", len(eligible), "tokens", tokens, "batches", len(batches))

	vectors := make([][][]float32, len(batches))
	var (
		mu     sync.Mutex
		done   int
		failed int
		start  = time.Now()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, b := range batches {
		g.Go(func() error {
			texts := make([]string, len(b.Items))
			for k, r := range b.Items {
				texts[k] = EmbeddingInput(r)
			}

			vecs, err := s.provider.EmbedTexts(gctx, texts)
			if err == nil && len(vecs) != len(texts) {
				err = fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(texts))
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("batch failed, storing without embeddings", "batch", i+1, "items", len(b.Items), "error", err)
				mu.Lock()
				failed += len(b.Items)
				mu.Unlock()
				return nil
			}
			vectors[i] = vecs

			mu.Lock()
			done += len(b.Items)
			progress := done
			mu.Unlock()
			log.Debug("batch embedded",
				"batch", i+1, "of", len(batches),
				"items", len(b.Items), "tokens", b.Tokens,
				"progress", progress, "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	stats.Embedded = done
	stats.Failed = failed

	// Merge back by identity key. Each key holds a queue so records sharing
	// a key receive their own vectors in order.
	byKey := make(map[string][][]float32)
	for i, b := range batches {
		for k, r := range b.Items {
			var vec []float32
			if vectors[i] != nil {
				vec = vectors[i][k]
			}
			byKey[r.Key()] = append(byKey[r.Key()], vec)
		}
	}
	out := make([]models.Record, len(records))
	for i, r := range records {
		r.Embedding = nil
		if r.TokenCount >= minTokens {
			key := r.Key()
			if q := byKey[key]; len(q) > 0 {
				r.Embedding = q[0]
				byKey[key] = q[1:]
			}
		}
		out[i] = r
	}

	log.Info("embedding finished", "embedded", stats.Embedded, "failed", stats.Failed,
		"skipped", stats.Skipped, "duration", time.Since(start).Round(time.Millisecond))
	return out, stats, nil
}
