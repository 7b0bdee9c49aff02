package search

import (
	"fmt"
	"time"

	domrank "github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/usecase/crossmodal"
)

// Defaults.
const (
	DefaultRequestTimeout        = 5 * time.Second
	DefaultResultCacheTTL        = 5 * time.Minute
	DefaultResultCacheMaxEntries = 100
	DefaultWarmupWorkers         = 4
	DefaultPopularQueries        = 100
)

// Config drives a Service instance.
type Config struct {
	DefaultLimit          int
	DefaultThreshold      float64
	RequestTimeout        time.Duration
	ResultCacheTTL        time.Duration
	ResultCacheMaxEntries int
	SemanticExpansion     bool
	IncludeCrossModal     bool
	WarmupWorkers         int
	ParallelStrategies    bool
	DiversityFactor       float64
	MaxSimilarResults     int
	PopularQueries        int
	Presets               domrank.Presets
	CrossModal            crossmodal.Config
}

// DefaultConfig returns the stock service settings.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:          query.DefaultLimit,
		DefaultThreshold:      query.DefaultThreshold,
		RequestTimeout:        DefaultRequestTimeout,
		ResultCacheTTL:        DefaultResultCacheTTL,
		ResultCacheMaxEntries: DefaultResultCacheMaxEntries,
		SemanticExpansion:     true,
		IncludeCrossModal:     true,
		WarmupWorkers:         DefaultWarmupWorkers,
		PopularQueries:        DefaultPopularQueries,
		Presets:               domrank.DefaultPresets(),
		CrossModal:            crossmodal.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = query.DefaultLimit
	}
	if c.DefaultThreshold <= 0 {
		c.DefaultThreshold = query.DefaultThreshold
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ResultCacheTTL <= 0 {
		c.ResultCacheTTL = DefaultResultCacheTTL
	}
	if c.ResultCacheMaxEntries <= 0 {
		c.ResultCacheMaxEntries = DefaultResultCacheMaxEntries
	}
	if c.WarmupWorkers <= 0 {
		c.WarmupWorkers = DefaultWarmupWorkers
	}
	if c.PopularQueries <= 0 {
		c.PopularQueries = DefaultPopularQueries
	}
	if c.Presets == nil {
		c.Presets = domrank.DefaultPresets()
	}
	return c
}

func (c Config) defaults() query.Defaults {
	return query.Defaults{Limit: c.DefaultLimit, Threshold: c.DefaultThreshold}
}

// ConfigPatch is a partial update. Nil fields are left unchanged.
type ConfigPatch struct {
	DefaultLimit        *int                       `json:"default_limit,omitempty"`
	DefaultThreshold    *float64                   `json:"default_threshold,omitempty"`
	SemanticExpansion   *bool                      `json:"semantic_expansion,omitempty"`
	IncludeCrossModal   *bool                      `json:"include_cross_modal,omitempty"`
	DiversityFactor     *float64                   `json:"diversity_factor,omitempty"`
	MaxSimilarResults   *int                       `json:"max_similar_results,omitempty"`
	ResultCacheTTL      *time.Duration             `json:"result_cache_ttl,omitempty"`
	Presets             map[string]domrank.Weights `json:"presets,omitempty"`
	MaxMatchesPerType   *int                       `json:"max_matches_per_type,omitempty"`
	SimilarityThreshold *float64                   `json:"similarity_threshold,omitempty"`
	SemanticBridging    *bool                      `json:"semantic_bridging,omitempty"`
	Pairs               map[string]bool            `json:"pairs,omitempty"`
}

// apply returns c updated with the non-nil fields of p.
func (p ConfigPatch) apply(c Config) (Config, error) {
	if p.DefaultLimit != nil {
		if *p.DefaultLimit <= 0 || *p.DefaultLimit > query.MaxLimit {
			return c, fmt.Errorf("default_limit must be between 1 and %d", query.MaxLimit)
		}
		c.DefaultLimit = *p.DefaultLimit
	}
	if p.DefaultThreshold != nil {
		if *p.DefaultThreshold <= 0 || *p.DefaultThreshold > 1 {
			return c, fmt.Errorf("default_threshold must be in (0, 1]")
		}
		c.DefaultThreshold = *p.DefaultThreshold
	}
	if p.SemanticExpansion != nil {
		c.SemanticExpansion = *p.SemanticExpansion
	}
	if p.IncludeCrossModal != nil {
		c.IncludeCrossModal = *p.IncludeCrossModal
	}
	if p.DiversityFactor != nil {
		if *p.DiversityFactor < 0 || *p.DiversityFactor > 1 {
			return c, fmt.Errorf("diversity_factor must be between 0 and 1")
		}
		c.DiversityFactor = *p.DiversityFactor
	}
	if p.MaxSimilarResults != nil {
		if *p.MaxSimilarResults < 0 {
			return c, fmt.Errorf("max_similar_results must be non-negative")
		}
		c.MaxSimilarResults = *p.MaxSimilarResults
	}
	if p.ResultCacheTTL != nil {
		if *p.ResultCacheTTL <= 0 {
			return c, fmt.Errorf("result_cache_ttl must be positive")
		}
		c.ResultCacheTTL = *p.ResultCacheTTL
	}
	if len(p.Presets) > 0 {
		presets := make(domrank.Presets, len(c.Presets)+len(p.Presets))
		for k, v := range c.Presets {
			presets[k] = v
		}
		for k, v := range p.Presets {
			if err := v.Validate(); err != nil {
				return c, fmt.Errorf("preset %q: %w", k, err)
			}
			presets[k] = v
		}
		c.Presets = presets
	}

	cm := c.CrossModal
	if p.MaxMatchesPerType != nil {
		if *p.MaxMatchesPerType <= 0 {
			return c, fmt.Errorf("max_matches_per_type must be positive")
		}
		cm.MaxMatchesPerType = *p.MaxMatchesPerType
	}
	if p.SimilarityThreshold != nil {
		if *p.SimilarityThreshold <= 0 || *p.SimilarityThreshold > 1 {
			return c, fmt.Errorf("similarity_threshold must be in (0, 1]")
		}
		cm.SimilarityThreshold = *p.SimilarityThreshold
	}
	if p.SemanticBridging != nil {
		cm.SemanticBridging = *p.SemanticBridging
	}
	if len(p.Pairs) > 0 {
		disabled := make(map[crossmodal.Pair]bool, len(cm.Disabled)+len(p.Pairs))
		for k, v := range cm.Disabled {
			disabled[k] = v
		}
		for name, enabled := range p.Pairs {
			pair, err := crossmodal.ParsePair(name)
			if err != nil {
				return c, err
			}
			if enabled {
				delete(disabled, pair)
			} else {
				disabled[pair] = true
			}
		}
		cm.Disabled = disabled
	}
	c.CrossModal = cm
	return c, nil
}
