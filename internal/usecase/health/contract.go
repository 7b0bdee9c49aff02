package health

import (
	"context"

	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// StorageReporter reports how many embeddings the store holds per modality.
type StorageReporter interface {
	StorageStats(ctx context.Context) (vector.StorageStats, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
