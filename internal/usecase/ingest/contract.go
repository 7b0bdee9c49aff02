package ingest

import (
	"context"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// Store persists embeddings.
type Store interface {
	Upsert(ctx context.Context, e content.Embedding) (created bool, err error)
	GetEmbedding(ctx context.Context, id string) (content.Embedding, error)
	Delete(ctx context.Context, id string) error
}

// Embedder vectorizes content items.
type Embedder interface {
	Embed(ctx context.Context, c content.Content) (content.Embedding, error)
}

// CacheInvalidator drops derived search state after the corpus changes.
type CacheInvalidator interface {
	ClearCaches()
}
