package ingestion_engine

import "context"

// Ingestor runs the configured profile over a set of statute source files.
type Ingestor interface {
	Run(ctx context.Context, sources []SourceFile) (*RunSummary, error)
}

var _ Ingestor = (*Pipeline)(nil)
