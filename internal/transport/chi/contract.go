package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	healthuc "github.com/kailas-cloud/modalsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/modalsearch/internal/usecase/search"
)

// SearchService is the search pipeline consumed by the HTTP layer.
type SearchService interface {
	Search(ctx context.Context, q query.Query, opts query.Options) (searchuc.Response, error)
	SearchWithStrategies(ctx context.Context, q query.Query, strategies []searchuc.Strategy) (searchuc.EnsembleResponse, error)
	Explain(ctx context.Context, q query.Query, opts query.Options, resultID string) (string, error)
	Warmup(ctx context.Context, queries []query.Query) (searchuc.WarmupReport, error)
	Stats(ctx context.Context) searchuc.Stats
	ClearCaches()
	Config() searchuc.Config
	UpdateConfig(patch searchuc.ConfigPatch) (searchuc.Config, error)
}

// IngestService writes content into the vector store.
type IngestService interface {
	Upsert(ctx context.Context, c content.Content) (bool, error)
	UpsertBatch(ctx context.Context, items []content.Content) []dombatch.Result
	Get(ctx context.Context, id string) (content.Content, error)
	Delete(ctx context.Context, ids []string) []dombatch.Result
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
