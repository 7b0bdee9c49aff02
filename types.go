package modalsearch

import (
	"github.com/kailas-cloud/modalsearch/internal/config"
	"github.com/kailas-cloud/modalsearch/internal/domain"
	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/modalsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/modalsearch/internal/usecase/search"
)

// Content model.
type (
	// Type is a content modality.
	Type = content.Type
	// Content is a searchable item of one modality.
	Content = content.Content
	// Metadata describes a content item.
	Metadata = content.Metadata
)

// Modalities.
const (
	Text  = content.Text
	Code  = content.Code
	Image = content.Image
	Audio = content.Audio
	Video = content.Video
)

// Queries and results.
type (
	Query            = query.Query
	Options          = query.Options
	Filters          = filter.Filters
	Weights          = ranking.Weights
	Result           = result.Result
	CrossModalMatch  = result.CrossModalMatch
	Analytics        = result.Analytics
	Response         = searchuc.Response
	Strategy         = searchuc.Strategy
	EnsembleResponse = searchuc.EnsembleResponse
	Stats            = searchuc.Stats
	WarmupReport     = searchuc.WarmupReport
	HealthReport     = healthuc.Report
	ItemResult       = dombatch.Result
	BatchSummary     = dombatch.Summary
)

// Config is the full service configuration, as read from YAML.
type Config = config.Config

// Embedder turns text into a vector. Implementations that also satisfy
// BatchEmbedder are called once per batch.
type (
	Embedder        = domain.Embedder
	BatchEmbedder   = domain.BatchEmbedder
	EmbeddingResult = domain.EmbeddingResult
)

// Errors returned by the client. Match with errors.Is.
var (
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidContent         = domain.ErrInvalidContent
	ErrInvalidConfig          = domain.ErrInvalidConfig
	ErrNotFound               = domain.ErrEmbeddingNotFound
	ErrResultNotFound         = domain.ErrResultNotFound
	ErrUnknownWeightProfile   = domain.ErrUnknownWeightProfile
	ErrAllStrategiesFailed    = domain.ErrAllStrategiesFailed
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrProviderUnavailable    = domain.ErrProviderUnavailable
)

// DefaultConfig returns the offline setup: in-memory HNSW store and the
// hashing embedder.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a YAML config file with ${VAR:-default} expansion.
func LoadConfig(path string) (Config, error) {
	return config.LoadFile(path) //nolint:wrapcheck // already descriptive
}
