package core

import "context"

// EmbeddingProvider turns texts into vectors, one per text, in input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
