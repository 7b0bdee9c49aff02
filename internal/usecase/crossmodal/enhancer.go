// Package crossmodal finds related content across modalities for search results.
package crossmodal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/cache"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/relationship"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
)

// Stats summarizes enhancer activity since the last cache clear.
type Stats struct {
	EnabledPairs     int         `json:"enabled_pairs"`
	SemanticBridging bool        `json:"semantic_bridging"`
	Cache            cache.Stats `json:"relationship_cache"`
	EnhancedResults  int64       `json:"enhanced_results"`
	DirectMatches    int64       `json:"direct_matches"`
	BridgedMatches   int64       `json:"bridged_matches"`
}

// Enhancer attaches cross-modal matches to results. The relationship cache is
// owned by the instance.
type Enhancer struct {
	store  VectorStore
	logger *zap.Logger
	now    func() time.Time

	mu  sync.RWMutex
	cfg Config

	cache *cache.Cache[string, []relationship.Record]

	enhanced atomic.Int64
	direct   atomic.Int64
	bridged  atomic.Int64
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithClock overrides the time source used for CachedAt and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Enhancer) { e.now = now }
}

// New creates an Enhancer.
func New(store VectorStore, cfg Config, logger *zap.Logger, opts ...Option) *Enhancer {
	cfg = cfg.withDefaults()
	e := &Enhancer{store: store, cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.cache = cache.New[string, []relationship.Record](cfg.CacheTTL, cfg.CacheMaxEntries, cache.WithClock(e.now))
	return e
}

// Config returns the active configuration.
func (e *Enhancer) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetConfig swaps the configuration and drops cached relationships.
func (e *Enhancer) SetConfig(cfg Config) {
	cfg = cfg.withDefaults()
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.cache.SetTTL(cfg.CacheTTL)
	e.cache.Clear()
}

// ClearCache drops cached relationships and resets counters.
func (e *Enhancer) ClearCache() {
	e.cache.Clear()
	e.enhanced.Store(0)
	e.direct.Store(0)
	e.bridged.Store(0)
}

// Stats returns a snapshot of enhancer counters.
func (e *Enhancer) Stats() Stats {
	cfg := e.Config()
	return Stats{
		EnabledPairs:     cfg.EnabledPairs(),
		SemanticBridging: cfg.SemanticBridging,
		Cache:            e.cache.Stats(),
		EnhancedResults:  e.enhanced.Load(),
		DirectMatches:    e.direct.Load(),
		BridgedMatches:   e.bridged.Load(),
	}
}

// Enhance sets CrossModalMatches on every result for the requested modalities
// other than its own. Results are modified in place and returned. complete is
// false when any store lookup failed, in which case some matches may be missing.
func (e *Enhancer) Enhance(ctx context.Context, results []result.Result, q query.Query) ([]result.Result, bool) {
	complete := true
	for i := range results {
		targets := make([]content.Type, 0, len(q.Modalities))
		for _, m := range q.Modalities {
			if m != results[i].Type {
				targets = append(targets, m)
			}
		}
		if len(targets) == 0 {
			continue
		}

		src := results[i].Embedding()
		if len(src.Vector) == 0 {
			emb, err := e.store.GetEmbedding(ctx, src.ID)
			if err != nil {
				e.logger.Warn("Cross-modal source embedding unavailable",
					zap.String("id", src.ID), zap.Error(err))
				complete = false
				continue
			}
			src = emb
		}

		matches, ok := e.findMatches(ctx, src, targets)
		results[i].CrossModalMatches = matches
		complete = complete && ok
		e.enhanced.Add(1)
	}
	return results, complete
}

// FindMatches returns matches of source in the target modalities, restricted to
// pairs enabled in config. Per-modality failures are logged and skipped.
func (e *Enhancer) FindMatches(ctx context.Context, source content.Embedding, targets []content.Type) []result.CrossModalMatch {
	matches, _ := e.findMatches(ctx, source, targets)
	return matches
}

// findMatches also reports whether every lookup succeeded. Only complete
// match sets are cached, so a store outage never outlives the call.
func (e *Enhancer) findMatches(
	ctx context.Context, source content.Embedding, targets []content.Type,
) ([]result.CrossModalMatch, bool) {
	cfg := e.Config()
	key := cacheKey(source.ID, targets)

	if recs, ok := e.cache.Get(key); ok {
		metrics.CacheLookup("relationship", true)
		return toMatches(recs), true
	}
	metrics.CacheLookup("relationship", false)

	var found []candidate
	targetCount := 0
	var bridges []vector.Hit
	bridgesLoaded := false
	failed := false

	for _, t := range uniqueTypes(targets) {
		if !cfg.Enabled(source.Type, t) {
			continue
		}
		targetCount++

		direct, err := e.directMatches(ctx, cfg, source, t)
		if err != nil {
			metrics.SearchModalityFailuresTotal.WithLabelValues(string(t), "cross_modal").Inc()
			e.logger.Warn("Cross-modal search failed",
				zap.String("source_id", source.ID),
				zap.String("target_type", string(t)),
				zap.Error(err),
			)
			failed = true
		}
		found = append(found, direct...)
		e.direct.Add(int64(len(direct)))

		if !cfg.SemanticBridging || len(direct) >= cfg.MaxMatchesPerType || t == content.Text {
			continue
		}
		if !bridgesLoaded {
			var ok bool
			bridges, ok = e.textNeighbors(ctx, source)
			failed = failed || !ok
			bridgesLoaded = true
		}
		bridged, ok := e.bridgedMatches(ctx, cfg, source, t, bridges)
		failed = failed || !ok
		found = append(found, bridged...)
		e.bridged.Add(int64(len(bridged)))
	}

	found = dedupe(found)
	if limit := cfg.MaxMatchesPerType * targetCount; len(found) > limit {
		found = found[:limit]
	}

	recs := toRecords(source, found, e.now())
	if !failed {
		e.cache.Set(key, recs)
	}
	for _, c := range found {
		metrics.CrossModalMatchesTotal.WithLabelValues(c.match.Relationship.String()).Inc()
	}
	return toMatches(recs), !failed
}

// candidate is a match with the signals kept in its relationship record.
type candidate struct {
	match      result.CrossModalMatch
	similarity float64
	contextual float64
}

func (e *Enhancer) directMatches(
	ctx context.Context, cfg Config, source content.Embedding, t content.Type,
) ([]candidate, error) {
	hits, err := e.store.SearchByContentType(ctx, source.Vector, t, vector.SearchOptions{
		Limit:           2 * cfg.MaxMatchesPerType,
		Threshold:       cfg.SimilarityThreshold,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // logged by caller with context
	}

	matches := make([]candidate, 0, len(hits))
	for _, h := range hits {
		if h.ID == source.ID {
			continue
		}
		target, err := e.store.GetEmbedding(ctx, h.ID)
		if err != nil {
			target = content.Embedding{ID: h.ID, Type: t, Metadata: h.Metadata}
		}
		rel := contextualRelevance(source, target)
		if rel <= minRelevance {
			continue
		}
		matches = append(matches, candidate{
			match: result.CrossModalMatch{
				ContentID:    h.ID,
				Type:         t,
				Score:        h.Score * rel,
				Relationship: relationship.Classify(source.Type, t, target.Metadata.Tags),
			},
			similarity: h.Score,
			contextual: rel,
		})
	}
	return matches, nil
}

// textNeighbors finds TEXT items close to source that carry their own vectors.
// ok is false when the lookup failed.
func (e *Enhancer) textNeighbors(ctx context.Context, source content.Embedding) ([]vector.Hit, bool) {
	hits, err := e.store.SearchByContentType(ctx, source.Vector, content.Text, vector.SearchOptions{
		Limit:           bridgeNeighbors,
		Threshold:       bridgeThreshold,
		IncludeMetadata: true,
		IncludeVectors:  true,
	})
	if err != nil {
		e.logger.Debug("Semantic bridge lookup failed", zap.String("source_id", source.ID), zap.Error(err))
		return nil, false
	}
	out := make([]vector.Hit, 0, len(hits))
	for _, h := range hits {
		if h.ID == source.ID || h.Embedding == nil || len(h.Embedding.Vector) == 0 {
			continue
		}
		out = append(out, h)
	}
	return out, true
}

func (e *Enhancer) bridgedMatches(
	ctx context.Context, cfg Config, source content.Embedding, t content.Type, bridges []vector.Hit,
) ([]candidate, bool) {
	var matches []candidate
	ok := true
	for _, b := range bridges {
		hits, err := e.store.SearchByContentType(ctx, b.Embedding.Vector, t, vector.SearchOptions{
			Limit:           bridgeTargets,
			Threshold:       bridgeTargetFloor,
			IncludeMetadata: true,
		})
		if err != nil {
			e.logger.Debug("Semantic bridge hop failed",
				zap.String("bridge_id", b.ID), zap.String("target_type", string(t)), zap.Error(err))
			ok = false
			continue
		}
		for _, h := range hits {
			if h.ID == source.ID {
				continue
			}
			score := b.Score * h.Score * bridgeDamping
			if score < cfg.SimilarityThreshold {
				continue
			}
			matches = append(matches, candidate{
				match: result.CrossModalMatch{
					ContentID:    h.ID,
					Type:         t,
					Score:        score,
					Relationship: relationship.Classify(source.Type, t, h.Metadata.Tags),
					BridgeID:     b.ID,
				},
				similarity: h.Score,
				contextual: b.Score,
			})
		}
	}
	return matches, ok
}

// dedupe sorts by score descending and keeps the best match per content id.
func dedupe(cs []candidate) []candidate {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].match.Score > cs[j].match.Score })
	seen := make(map[string]struct{}, len(cs))
	out := make([]candidate, 0, len(cs))
	for _, c := range cs {
		if _, dup := seen[c.match.ContentID]; dup {
			continue
		}
		seen[c.match.ContentID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func uniqueTypes(ts []content.Type) []content.Type {
	seen := make(map[content.Type]struct{}, len(ts))
	out := make([]content.Type, 0, len(ts))
	for _, t := range ts {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cacheKey(sourceID string, targets []content.Type) string {
	names := make([]string, 0, len(targets))
	for _, t := range uniqueTypes(targets) {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return sourceID + "|" + strings.Join(names, ",")
}

func toRecords(source content.Embedding, cs []candidate, now time.Time) []relationship.Record {
	recs := make([]relationship.Record, len(cs))
	for i, c := range cs {
		recs[i] = relationship.Record{
			SourceID:            source.ID,
			SourceType:          source.Type,
			TargetID:            c.match.ContentID,
			TargetType:          c.match.Type,
			Kind:                c.match.Relationship,
			Confidence:          c.match.Score,
			SemanticDistance:    1 - c.similarity,
			ContextualRelevance: c.contextual,
			BridgeID:            c.match.BridgeID,
			CachedAt:            now,
		}
	}
	return recs
}

func toMatches(recs []relationship.Record) []result.CrossModalMatch {
	out := make([]result.CrossModalMatch, len(recs))
	for i, r := range recs {
		out[i] = result.CrossModalMatch{
			ContentID:    r.TargetID,
			Type:         r.TargetType,
			Score:        r.Confidence,
			Relationship: r.Kind,
			BridgeID:     r.BridgeID,
		}
	}
	return out
}
