// Package app is the composition root shared by the server, the CLI and the
// embedded client: it turns a config.Config into wired services.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/config"
	"github.com/kailas-cloud/modalsearch/internal/db"
	dbRedis "github.com/kailas-cloud/modalsearch/internal/db/redis"
	"github.com/kailas-cloud/modalsearch/internal/domain"
	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	domrank "github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
	"github.com/kailas-cloud/modalsearch/internal/repository/corpus"
	"github.com/kailas-cloud/modalsearch/internal/repository/embcache"
	"github.com/kailas-cloud/modalsearch/internal/repository/memstore"
	"github.com/kailas-cloud/modalsearch/internal/repository/vectorstore"
	"github.com/kailas-cloud/modalsearch/internal/transport/hashembed"
	openaiEmb "github.com/kailas-cloud/modalsearch/internal/transport/openai"
	"github.com/kailas-cloud/modalsearch/internal/usecase/crossmodal"
	embeddinguc "github.com/kailas-cloud/modalsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/modalsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/modalsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/modalsearch/internal/usecase/search"
)

// VectorStore is what the services need from a storage backend.
type VectorStore interface {
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, e content.Embedding) (bool, error)
	GetEmbedding(ctx context.Context, id string) (content.Embedding, error)
	Delete(ctx context.Context, id string) error
	SearchByContentType(ctx context.Context, vec []float32, t content.Type, opts vector.SearchOptions) ([]vector.Hit, error)
	StorageStats(ctx context.Context) (vector.StorageStats, error)
}

// App holds the wired services.
type App struct {
	Search *searchuc.Service
	Ingest *ingestuc.Service
	Health *healthuc.Service
	Store  VectorStore

	cfg    config.Config
	logger *zap.Logger
	close  func()
}

// Option overrides a collaborator, mainly for tests and the embedded client.
type Option func(*options)

type options struct {
	store    VectorStore
	embedder domain.Embedder
}

// WithStore replaces the configured vector store.
func WithStore(s VectorStore) Option {
	return func(o *options) { o.store = s }
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e domain.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// New wires the services described by cfg. For the redis driver it waits for
// the server and ensures the vector index exists.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	a := &App{cfg: cfg, logger: logger, close: func() {}}

	var kv db.KVStore
	if o.store != nil {
		a.Store = o.store
	} else {
		storeCfg := cfg
		if o.embedder != nil && cfg.Database.Driver == config.DriverMemory {
			// An injected embedder decides the vector size; adopt it on first upsert.
			storeCfg.Embedding.Dimensions = 0
		}
		store, redisStore, err := openStore(ctx, storeCfg, logger)
		if err != nil {
			return nil, err
		}
		a.Store = store
		if redisStore != nil {
			kv = redisStore
			a.close = redisStore.Close
		}
	}

	textEmbedder := o.embedder
	if textEmbedder == nil {
		textEmbedder = buildEmbedder(cfg.Embedding, cfg.Storage.KeyPrefix, kv, logger)
	}
	docEmbedder := embeddinguc.NewContentEmbedder(textEmbedder)
	queryEmbedder := docEmbedder
	if cfg.Embedding.QueryInstruction != "" {
		queryEmbedder = embeddinguc.NewContentEmbedder(
			domain.NewInstructionEmbedder(textEmbedder, cfg.Embedding.QueryInstruction))
	}

	searchCfg, err := SearchConfig(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	var searchOpts []searchuc.Option
	if len(cfg.Search.Synonyms) > 0 {
		searchOpts = append(searchOpts, searchuc.WithExpander(
			searchuc.NewQueryExpander(searchuc.WithCustomSynonyms(cfg.Search.Synonyms))))
	}
	a.Search = searchuc.New(queryEmbedder, a.Store, searchCfg, logger, searchOpts...)
	a.Ingest = ingestuc.New(a.Store, docEmbedder, a.Search, logger)
	a.Health = healthuc.New(a.Store, a.Store, newEmbeddingHealthChecker(textEmbedder))

	logger.Info("Services wired",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return a, nil
}

// Close releases the database connection, if any.
func (a *App) Close() { a.close() }

// LoadCorpus ingests a YAML corpus file in batches.
func (a *App) LoadCorpus(ctx context.Context, path string) (dombatch.Summary, error) {
	items, err := corpus.Load(path)
	if err != nil {
		return dombatch.Summary{}, fmt.Errorf("load corpus: %w", err)
	}
	var results []dombatch.Result
	for start := 0; start < len(items); start += ingestuc.MaxBatchSize {
		end := min(start+ingestuc.MaxBatchSize, len(items))
		results = append(results, a.Ingest.UpsertBatch(ctx, items[start:end])...)
	}
	sum := dombatch.Summarize(results)
	a.logger.Info("Corpus loaded",
		zap.String("path", path),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// WarmupConfigured runs the warm-up queries listed in the config.
func (a *App) WarmupConfigured(ctx context.Context) (searchuc.WarmupReport, error) {
	if len(a.cfg.Search.WarmupQueries) == 0 {
		return searchuc.WarmupReport{}, nil
	}
	qs := make([]query.Query, len(a.cfg.Search.WarmupQueries))
	for i, text := range a.cfg.Search.WarmupQueries {
		qs[i] = query.Query{Text: text, Modalities: content.AllTypes()}
	}
	report, err := a.Search.Warmup(ctx, qs)
	if err != nil {
		return report, fmt.Errorf("warmup: %w", err)
	}
	return report, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (VectorStore, *dbRedis.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		return memstore.New(memstore.Config{
			Dimensions: cfg.Embedding.Dimensions,
			M:          cfg.Database.HNSWM,
			EfSearch:   cfg.Database.HNSWEFSearch,
		}), nil, nil
	}

	if cfg.Embedding.Dimensions <= 0 {
		return nil, nil, fmt.Errorf("%w: embedding.dimensions is required for the redis driver", domain.ErrInvalidConfig)
	}
	algo, err := db.ParseVectorAlgorithm(cfg.Database.Algorithm)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	rs, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create database store: %w", err)
	}
	if err := rs.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		rs.Close()
		return nil, nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	repo := vectorstore.New(rs, vectorstore.Options{
		KeyPrefix:      cfg.Storage.KeyPrefix,
		Dimensions:     cfg.Embedding.Dimensions,
		Algorithm:      algo,
		M:              cfg.Database.HNSWM,
		EFConstruction: cfg.Database.HNSWEFConstruct,
		Recreate:       cfg.Database.RecreateIndex,
	}, logger)
	if err := repo.EnsureIndex(ctx); err != nil {
		rs.Close()
		return nil, nil, fmt.Errorf("ensure index: %w", err)
	}
	return repo, rs, nil
}

// buildEmbedder assembles the decorator chain:
// OpenAI -> Breaker -> Cached (redis only) -> Instrumented, or Static -> Instrumented.
func buildEmbedder(cfg config.EmbeddingConfig, keyPrefix string, kv db.KVStore, logger *zap.Logger) domain.Embedder {
	if cfg.Provider == config.ProviderStatic {
		return embeddinguc.NewInstrumentedEmbedder(
			hashembed.New(cfg.Dimensions), cfg.Provider, "hash", cfg.Dimensions, logger)
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		User:       cfg.User,
		Provider:   cfg.Provider,
		Logger:     logger,
	})
	var embedder domain.Embedder = openaiEmb.NewBreaker(base, cfg.Provider, openaiEmb.BreakerConfig{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     time.Duration(cfg.Breaker.IntervalSec) * time.Second,
		Timeout:      time.Duration(cfg.Breaker.TimeoutSec) * time.Second,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
	}, logger)

	if kv != nil && cfg.CacheTTLSec > 0 {
		embedder = embcache.New(embedder, kv, embcache.Options{
			KeyPrefix: keyPrefix,
			Model:     cfg.Model,
			TTL:       time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, cfg.Dimensions, logger)
}

// SearchConfig converts file configuration into service configuration.
// Zero values fall back to the service defaults.
func SearchConfig(cfg config.Config) (searchuc.Config, error) {
	out := searchuc.DefaultConfig()
	s := cfg.Search

	if s.DefaultLimit > 0 {
		out.DefaultLimit = s.DefaultLimit
	}
	if s.DefaultThreshold > 0 {
		out.DefaultThreshold = s.DefaultThreshold
	}
	if s.RequestTimeoutMs > 0 {
		out.RequestTimeout = time.Duration(s.RequestTimeoutMs) * time.Millisecond
	}
	if s.ResultCacheTTLSec > 0 {
		out.ResultCacheTTL = time.Duration(s.ResultCacheTTLSec) * time.Second
	}
	if s.ResultCacheMaxEntries > 0 {
		out.ResultCacheMaxEntries = s.ResultCacheMaxEntries
	}
	if s.SemanticExpansion != nil {
		out.SemanticExpansion = *s.SemanticExpansion
	}
	if s.IncludeCrossModal != nil {
		out.IncludeCrossModal = *s.IncludeCrossModal
	}
	if s.WarmupWorkers > 0 {
		out.WarmupWorkers = s.WarmupWorkers
	}
	if s.PopularQueries > 0 {
		out.PopularQueries = s.PopularQueries
	}
	out.ParallelStrategies = s.ParallelStrategies

	out.DiversityFactor = cfg.Ranking.DiversityFactor
	out.MaxSimilarResults = cfg.Ranking.MaxSimilarResults
	if len(cfg.Ranking.Presets) > 0 {
		presets := domrank.Presets(domrank.DefaultPresets())
		for name, w := range cfg.Ranking.Presets {
			if err := w.Validate(); err != nil {
				return out, fmt.Errorf("%w: preset %q: %w", domain.ErrInvalidConfig, name, err)
			}
			presets[name] = w
		}
		out.Presets = presets
	}

	cm := cfg.CrossModal
	if cm.MaxMatchesPerType > 0 {
		out.CrossModal.MaxMatchesPerType = cm.MaxMatchesPerType
	}
	if cm.SimilarityThreshold > 0 {
		out.CrossModal.SimilarityThreshold = cm.SimilarityThreshold
	}
	if cm.SemanticBridging != nil {
		out.CrossModal.SemanticBridging = *cm.SemanticBridging
	}
	if cm.CacheTTLSec > 0 {
		out.CrossModal.CacheTTL = time.Duration(cm.CacheTTLSec) * time.Second
	}
	if cm.CacheMaxEntries > 0 {
		out.CrossModal.CacheMaxEntries = cm.CacheMaxEntries
	}
	if len(cm.Pairs) > 0 {
		disabled := make(map[crossmodal.Pair]bool)
		for name, enabled := range cm.Pairs {
			pair, err := crossmodal.ParsePair(name)
			if err != nil {
				return out, fmt.Errorf("%w: crossmodal.pairs: %w", domain.ErrInvalidConfig, err)
			}
			if !enabled {
				disabled[pair] = true
			}
		}
		out.CrossModal.Disabled = disabled
	}
	return out, nil
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
