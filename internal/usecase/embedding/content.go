package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// ContentEmbedder vectorizes content items through a text embedder. Every
// modality is embedded from its textual rendering (title, description, tags
// and data), so text queries land in the same space as media descriptions.
type ContentEmbedder struct {
	inner domain.Embedder
	now   func() time.Time
}

// ContentOption configures a ContentEmbedder.
type ContentOption func(*ContentEmbedder)

// WithClock overrides the CreatedAt source.
func WithClock(now func() time.Time) ContentOption {
	return func(e *ContentEmbedder) { e.now = now }
}

// NewContentEmbedder creates a content adapter over a text embedder.
func NewContentEmbedder(inner domain.Embedder, opts ...ContentOption) *ContentEmbedder {
	e := &ContentEmbedder{inner: inner, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed vectorizes a single content item.
func (e *ContentEmbedder) Embed(ctx context.Context, c content.Content) (content.Embedding, error) {
	text, err := renderable(c)
	if err != nil {
		return content.Embedding{}, err
	}
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return content.Embedding{}, fmt.Errorf("embed %s %q: %w", c.Type, c.ID, err)
	}
	return e.wrap(c, res.Embedding), nil
}

// EmbedBatch vectorizes items in one provider round trip when the inner
// embedder supports batching.
func (e *ContentEmbedder) EmbedBatch(ctx context.Context, items []content.Content) ([]content.Embedding, error) {
	if len(items) == 0 {
		return nil, nil
	}
	texts := make([]string, len(items))
	for i, c := range items {
		text, err := renderable(c)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		texts[i] = text
	}

	var res domain.BatchEmbeddingResult
	var err error
	if be, ok := e.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, e.inner, texts)
	}
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(res.Embeddings) != len(items) {
		return nil, fmt.Errorf("%w: got %d vectors for %d items",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(items))
	}

	out := make([]content.Embedding, len(items))
	for i, c := range items {
		out[i] = e.wrap(c, res.Embeddings[i])
	}
	return out, nil
}

func (e *ContentEmbedder) wrap(c content.Content, vec []float32) content.Embedding {
	return content.Embedding{
		ID:        c.ID,
		Type:      c.Type,
		Vector:    vec,
		Metadata:  c.Metadata.Clone(),
		Data:      c.Data,
		CreatedAt: e.now().UTC(),
	}
}

func renderable(c content.Content) (string, error) {
	if !c.Type.IsValid() {
		return "", fmt.Errorf("%w: unknown type %q", domain.ErrInvalidContent, c.Type)
	}
	text := c.Text()
	if text == "" {
		return "", fmt.Errorf("%w: %q has nothing to embed", domain.ErrInvalidContent, c.ID)
	}
	return text, nil
}
