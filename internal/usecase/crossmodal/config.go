package crossmodal

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// Defaults.
const (
	DefaultMaxMatchesPerType   = 3
	DefaultSimilarityThreshold = 0.5
	DefaultCacheTTL            = 10 * time.Minute
	DefaultCacheMaxEntries     = 1000
)

// Pair is a directed (source, target) modality pair.
type Pair struct {
	Source content.Type
	Target content.Type
}

func (p Pair) String() string { return string(p.Source) + "->" + string(p.Target) }

// ParsePair parses "text->code".
func ParsePair(s string) (Pair, error) {
	src, dst, ok := strings.Cut(s, "->")
	if !ok {
		return Pair{}, fmt.Errorf("invalid modality pair %q, want source->target", s)
	}
	st, err := content.ParseType(src)
	if err != nil {
		return Pair{}, fmt.Errorf("pair %q: %w", s, err)
	}
	tt, err := content.ParseType(dst)
	if err != nil {
		return Pair{}, fmt.Errorf("pair %q: %w", s, err)
	}
	return Pair{Source: st, Target: tt}, nil
}

// Config tunes cross-modal matching. Pairs absent from Disabled are enabled.
type Config struct {
	MaxMatchesPerType   int
	SimilarityThreshold float64
	SemanticBridging    bool
	Disabled            map[Pair]bool
	CacheTTL            time.Duration
	CacheMaxEntries     int
}

// DefaultConfig returns the stock cross-modal settings with bridging enabled.
func DefaultConfig() Config {
	return Config{
		MaxMatchesPerType:   DefaultMaxMatchesPerType,
		SimilarityThreshold: DefaultSimilarityThreshold,
		SemanticBridging:    true,
		CacheTTL:            DefaultCacheTTL,
		CacheMaxEntries:     DefaultCacheMaxEntries,
	}
}

// Enabled reports whether matches from source to target may be produced.
// Same-modality pairs are never cross-modal.
func (c Config) Enabled(source, target content.Type) bool {
	if source == target {
		return false
	}
	return !c.Disabled[Pair{Source: source, Target: target}]
}

// EnabledPairs counts enabled directed pairs over all modalities.
func (c Config) EnabledPairs() int {
	n := 0
	for _, s := range content.AllTypes() {
		for _, t := range content.AllTypes() {
			if c.Enabled(s, t) {
				n++
			}
		}
	}
	return n
}

func (c Config) withDefaults() Config {
	if c.MaxMatchesPerType <= 0 {
		c.MaxMatchesPerType = DefaultMaxMatchesPerType
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = DefaultCacheMaxEntries
	}
	return c
}
