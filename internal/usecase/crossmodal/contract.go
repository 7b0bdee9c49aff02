package crossmodal

import (
	"context"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

// VectorStore answers per-modality nearest-neighbor queries.
type VectorStore interface {
	SearchByContentType(
		ctx context.Context, vec []float32, t content.Type, opts vector.SearchOptions,
	) ([]vector.Hit, error)
	GetEmbedding(ctx context.Context, id string) (content.Embedding, error)
}
