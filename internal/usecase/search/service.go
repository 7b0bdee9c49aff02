// Package search orchestrates retrieval, cross-modal enhancement, ranking,
// diversification and blending for multi-modal queries.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/cache"
	"github.com/kailas-cloud/modalsearch/internal/domain"
	domrank "github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
	"github.com/kailas-cloud/modalsearch/internal/usecase/crossmodal"
	"github.com/kailas-cloud/modalsearch/internal/usecase/diversify"
	"github.com/kailas-cloud/modalsearch/internal/usecase/ranking"
)

// Response is the outcome of a single search.
type Response struct {
	Results     []result.Result  `json:"results"`
	Analytics   result.Analytics `json:"analytics"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// Service runs the search pipeline. Caches and stats are owned by the instance.
type Service struct {
	embed    Embedder
	store    VectorStore
	expander Expander
	logger   *zap.Logger

	mu  sync.RWMutex
	cfg Config

	results   *cache.Cache[string, []result.Result]
	enhancer  *crossmodal.Enhancer
	retriever *Retriever
	stats     *queryStats
}

// Option configures a Service.
type Option func(*Service)

// WithExpander replaces the built-in synonym expander.
func WithExpander(e Expander) Option {
	return func(s *Service) { s.expander = e }
}

// New creates a search service.
func New(embed Embedder, store VectorStore, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		embed:    embed,
		store:    store,
		expander: NewQueryExpander(),
		logger:   logger,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.results = cache.New[string, []result.Result](cfg.ResultCacheTTL, cfg.ResultCacheMaxEntries)
	s.enhancer = crossmodal.New(store, cfg.CrossModal, logger)
	s.retriever = NewRetriever(embed, store, s.expander, s.enhancer, s.results, logger)
	s.stats = newQueryStats(cfg.PopularQueries)
	return s
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Search normalizes q, retrieves candidates and ranks them.
func (s *Service) Search(ctx context.Context, q query.Query, opts query.Options) (Response, error) {
	start := time.Now()
	resp, err := s.search(ctx, q, opts)
	metrics.ObserveSearch(time.Since(start), err)
	return resp, err
}

func (s *Service) search(ctx context.Context, q query.Query, opts query.Options) (Response, error) {
	start := time.Now()
	cfg := s.Config()

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	q, weights, err := s.prepare(cfg, q, opts)
	if err != nil {
		return Response{}, err
	}

	results, retrieved, err := s.retriever.Retrieve(ctx, q, resolve(cfg, q, opts))
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}

	results = ranking.Rank(results, q, weights)
	results = diversify.Diversify(results, query.FloatOr(opts.DiversityFactor, cfg.DiversityFactor),
		diversify.Options{MaxSimilarResults: cfg.MaxSimilarResults})

	suggestions := suggest(results, q)
	for i := range results {
		results[i].Metadata.Suggestions = suggestions
	}

	took := time.Since(start)
	s.stats.record(q.Text, took)

	return Response{
		Results:     results,
		Analytics:   result.Summarize(results, took, retrieved.CacheHit),
		Suggestions: suggestions,
	}, nil
}

// prepare normalizes and validates the query and resolves ranking weights.
func (s *Service) prepare(cfg Config, q query.Query, opts query.Options) (query.Query, domrank.Weights, error) {
	q = query.Normalize(q, cfg.defaults())
	if err := query.Validate(q); err != nil {
		return q, domrank.Weights{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if err := opts.Validate(); err != nil {
		return q, domrank.Weights{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	w, err := resolveWeights(cfg, opts)
	return q, w, err
}

func resolveWeights(cfg Config, opts query.Options) (domrank.Weights, error) {
	if opts.Weights != nil {
		if err := opts.Weights.Validate(); err != nil {
			return domrank.Weights{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}
		return *opts.Weights, nil
	}
	w, ok := cfg.Presets.Resolve(opts.WeightProfile)
	if !ok {
		return domrank.Weights{}, fmt.Errorf("%w: %q", domain.ErrUnknownWeightProfile, opts.WeightProfile)
	}
	return w, nil
}

func resolve(cfg Config, q query.Query, opts query.Options) RetrieveOptions {
	return RetrieveOptions{
		CrossModal: query.BoolOr(opts.IncludeCrossModal, cfg.IncludeCrossModal),
		Expansion:  query.BoolOr(opts.SemanticExpansion, cfg.SemanticExpansion),
		MinScore:   query.FloatOr(opts.MinScore, q.Threshold),
		MaxResults: query.IntOr(opts.MaxResults, q.Limit),
	}
}

// Explain re-runs the search and renders the ranking breakdown of resultID.
func (s *Service) Explain(ctx context.Context, q query.Query, opts query.Options, resultID string) (string, error) {
	resp, err := s.Search(ctx, q, opts)
	if err != nil {
		return "", err
	}
	cfg := s.Config()
	nq := query.Normalize(q, cfg.defaults())
	w, err := resolveWeights(cfg, opts)
	if err != nil {
		return "", err
	}
	for _, r := range resp.Results {
		if r.ID == resultID {
			return ranking.Explain(r, nq, w), nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrResultNotFound, resultID)
}

// Stats reports cache, query and storage statistics. A storage failure is
// logged and the storage section is omitted.
func (s *Service) Stats(ctx context.Context) Stats {
	total, avg, popular := s.stats.snapshot()
	st := Stats{
		TotalQueries:     total,
		AverageQueryTime: avg,
		ResultCache:      s.results.Stats(),
		PopularQueries:   popular,
		CrossModal:       s.enhancer.Stats(),
	}
	storage, err := s.store.StorageStats(ctx)
	if err != nil {
		s.logger.Warn("Storage stats unavailable", zap.Error(err))
		return st
	}
	st.Storage = &storage
	return st
}

// ClearCaches drops cached results and relationships.
func (s *Service) ClearCaches() {
	s.results.Clear()
	s.enhancer.ClearCache()
	s.logger.Info("Search caches cleared")
}

// UpdateConfig applies patch and clears the result cache. Cross-modal
// settings take effect immediately and clear the relationship cache.
func (s *Service) UpdateConfig(patch ConfigPatch) (Config, error) {
	s.mu.Lock()
	cur := s.cfg
	next, err := patch.apply(cur)
	if err != nil {
		s.mu.Unlock()
		return cur, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	s.cfg = next
	s.mu.Unlock()

	s.results.SetTTL(next.ResultCacheTTL)
	s.results.Clear()
	s.enhancer.SetConfig(next.CrossModal)
	s.logger.Info("Search config updated")
	return next, nil
}

// fork returns an independent service sharing collaborators but owning its
// own caches, configured from the current config plus patch.
func (s *Service) fork(patch *ConfigPatch) (*Service, error) {
	cfg := s.Config()
	if patch != nil {
		next, err := patch.apply(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
		cfg = next
	}
	return New(s.embed, s.store, cfg, s.logger, WithExpander(s.expander)), nil
}
