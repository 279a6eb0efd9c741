package ingestion_engine

import (
	"github.com/markdave123-py/kodeks/internal/core"
	"github.com/markdave123-py/kodeks/internal/logger"
)

// Profile selects which tables a run produces.
type Profile string

const (
	// ProfileActs loads, cumulates, dedupes and embeds into acts and acts_cumulated.
	ProfileActs Profile = "acts"
	// ProfileContext loads and naturally sorts into context; no cumulation, no embeddings.
	ProfileContext Profile = "context"
)

// IngestConfig tunes one pipeline run.
//
// Profile:            which pipeline configuration to run.
// Embed:              call the embedding provider (acts profile only).
// MinTokensActs:      detail records below this estimate are stored without embedding.
// MinTokensCumulated: same threshold for composite records.
// MaxBatchItems:      records per embedding request (e.g., 128).
// MaxBatchTokens:     estimated tokens per embedding request (e.g., 120000).
// Concurrency:        embedding requests in flight at once.
// SampleSize:         when > 0, random rows kept per source file.
// SampleSeed:         seed for sampling; 0 picks one from the clock.
// DryRun:             run every stage but do not touch the database.
type IngestConfig struct {
	Profile            Profile
	Embed              bool
	MinTokensActs      int
	MinTokensCumulated int
	MaxBatchItems      int
	MaxBatchTokens     int
	Concurrency        int
	SampleSize         int
	SampleSeed         uint64
	DryRun             bool
}

// DefaultIngestConfig mirrors the limits of voyage-law-2.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		Profile:            ProfileActs,
		Embed:              true,
		MinTokensActs:      20,
		MinTokensCumulated: 10,
		MaxBatchItems:      128,
		MaxBatchTokens:     120000,
		Concurrency:        1,
	}
}

// Backup is where embedded record sets are copied after a run.
//
// Client: object storage (S3 or a local directory).
// Bucket: bucket name; empty for the local client.
type Backup struct {
	Client core.ObjectClient
	Bucket string
}

// Pipeline runs a profile end to end:
//
// store:    persistence sink; may be nil for dry runs.
// loader:   reads statute source files.
// embedder: embedding provider; nil when embeddings are off.
// backup:   optional copy of embedded records.
// cfg:      runtime tuning knobs.
type Pipeline struct {
	store    core.ActsStore
	loader   *Loader
	embedder core.EmbeddingProvider
	backup   *Backup
	cfg      *IngestConfig
	log      *logger.Logger
}
