// Package ingest vectorizes content items and writes them to the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// Service handles content upserts with automatic vectorization.
type Service struct {
	store        Store
	embed        Embedder
	invalidator  CacheInvalidator
	logger       *zap.Logger
	maxBatchSize int
}

// New creates an ingest service. invalidator may be nil.
func New(store Store, embed Embedder, invalidator CacheInvalidator, logger *zap.Logger) *Service {
	return &Service{
		store:        store,
		embed:        embed,
		invalidator:  invalidator,
		logger:       logger,
		maxBatchSize: MaxBatchSize,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Upsert vectorizes and stores a single item. Returns true if it was created.
func (s *Service) Upsert(ctx context.Context, c content.Content) (bool, error) {
	if err := validate(c); err != nil {
		return false, err
	}
	e, err := s.embed.Embed(ctx, c)
	if err != nil {
		return false, fmt.Errorf("vectorize content: %w", err)
	}
	created, err := s.store.Upsert(ctx, e)
	if err != nil {
		return false, fmt.Errorf("upsert content: %w", err)
	}
	s.invalidate()
	return created, nil
}

// UpsertBatch processes items one by one with per-item error reporting.
// A rate limit or open provider breaker fails every remaining item.
func (s *Service) UpsertBatch(ctx context.Context, items []content.Content) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(item.ID, item.Type,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidContent))
		}
		return results
	}

	stored := 0
	for i, item := range items {
		if err := validate(item); err != nil {
			results[i] = dombatch.NewError(item.ID, item.Type, err)
			continue
		}

		e, err := s.embed.Embed(ctx, item)
		if err != nil {
			err = fmt.Errorf("vectorize: %w", err)
			results[i] = dombatch.NewError(item.ID, item.Type, err)
			if cascades(err) {
				for j := i + 1; j < len(items); j++ {
					results[j] = dombatch.NewError(items[j].ID, items[j].Type, err)
				}
				break
			}
			continue
		}

		if _, err := s.store.Upsert(ctx, e); err != nil {
			results[i] = dombatch.NewError(item.ID, item.Type, fmt.Errorf("upsert: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(item.ID, item.Type)
		stored++
	}

	if stored > 0 {
		s.invalidate()
	}
	sum := dombatch.Summarize(results)
	s.logger.Info("Batch ingest finished",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)
	return results
}

// Get returns a stored item.
func (s *Service) Get(ctx context.Context, id string) (content.Content, error) {
	e, err := s.store.GetEmbedding(ctx, id)
	if err != nil {
		return content.Content{}, fmt.Errorf("get content: %w", err)
	}
	return e.Content(), nil
}

// Delete removes items by id with per-item error reporting.
func (s *Service) Delete(ctx context.Context, ids []string) []dombatch.Result {
	results := make([]dombatch.Result, len(ids))

	if len(ids) > s.maxBatchSize {
		for i, id := range ids {
			results[i] = dombatch.NewError(id, "",
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidContent))
		}
		return results
	}

	deleted := 0
	for i, id := range ids {
		if err := s.store.Delete(ctx, id); err != nil {
			results[i] = dombatch.NewError(id, "", fmt.Errorf("delete: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(id, "")
		deleted++
	}
	if deleted > 0 {
		s.invalidate()
	}
	return results
}

func (s *Service) invalidate() {
	if s.invalidator != nil {
		s.invalidator.ClearCaches()
	}
}

func validate(c content.Content) error {
	if c.ID == "" {
		return fmt.Errorf("id is required: %w", domain.ErrInvalidContent)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("unknown type %q: %w", c.Type, domain.ErrInvalidContent)
	}
	return nil
}

func cascades(err error) bool {
	return errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrProviderUnavailable)
}
