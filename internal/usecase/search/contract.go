package search

import (
	"context"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

// Embedder turns content into a stored-embedding shaped vector.
type Embedder interface {
	Embed(ctx context.Context, c content.Content) (content.Embedding, error)
}

// VectorStore answers per-modality nearest-neighbor queries.
type VectorStore interface {
	SearchByContentType(
		ctx context.Context, vec []float32, t content.Type, opts vector.SearchOptions,
	) ([]vector.Hit, error)
	GetEmbedding(ctx context.Context, id string) (content.Embedding, error)
	StorageStats(ctx context.Context) (vector.StorageStats, error)
}
