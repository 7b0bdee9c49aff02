package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/cache"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
)

// queryContentID is the synthetic id given to the embedded query text.
const queryContentID = "query"

// Expander rewrites query text before embedding.
type Expander interface {
	Expand(ctx context.Context, text string) (string, error)
}

// Enhancer attaches cross-modal matches to results in place. It reports false
// when a lookup failed and matches may be missing.
type Enhancer interface {
	Enhance(ctx context.Context, results []result.Result, q query.Query) ([]result.Result, bool)
}

// RetrieveOptions are retrieval settings after falling back to service config.
type RetrieveOptions struct {
	CrossModal bool
	Expansion  bool
	MinScore   float64
	MaxResults int
}

// Retriever produces boosted, filtered candidates for a query and caches them.
type Retriever struct {
	embed    Embedder
	store    VectorStore
	expander Expander
	enhancer Enhancer
	cache    *cache.Cache[string, []result.Result]
	logger   *zap.Logger
}

// NewRetriever creates a retriever. expander and enhancer may be nil.
func NewRetriever(
	embed Embedder, store VectorStore, expander Expander, enhancer Enhancer,
	resultCache *cache.Cache[string, []result.Result], logger *zap.Logger,
) *Retriever {
	return &Retriever{
		embed:    embed,
		store:    store,
		expander: expander,
		enhancer: enhancer,
		cache:    resultCache,
		logger:   logger,
	}
}

// Retrieve runs cache lookup, expansion, embedding, per-modality KNN,
// filtering, cross-modal enhancement and boosting. Only the query embedding
// failure and an expired context are fatal; per-modality failures are logged
// and skipped, and the degraded result set is not cached.
func (r *Retriever) Retrieve(
	ctx context.Context, q query.Query, o RetrieveOptions,
) ([]result.Result, result.Analytics, error) {
	start := time.Now()

	key, cacheable := resultCacheKey(q, o)
	if cacheable {
		if cached, ok := r.cache.Get(key); ok {
			metrics.CacheLookup("result", true)
			out := result.CloneAll(cached)
			return out, result.Summarize(out, time.Since(start), true), nil
		}
		metrics.CacheLookup("result", false)
	}

	text := q.Text
	if o.Expansion && r.expander != nil {
		expanded, err := r.expander.Expand(ctx, text)
		if err != nil {
			r.logger.Debug("Query expansion failed, using original query", zap.Error(err))
		} else {
			text = expanded
		}
	}

	qe, err := r.embed.Embed(ctx, content.Content{ID: queryContentID, Type: content.Text, Data: text})
	if err != nil {
		return nil, result.Analytics{}, fmt.Errorf("vectorize query: %w", err)
	}

	results, complete := r.collect(ctx, q, qe.Vector)
	if err = ctx.Err(); err != nil {
		return nil, result.Analytics{}, fmt.Errorf("retrieve: %w", err)
	}

	if o.CrossModal && r.enhancer != nil && len(q.Modalities) > 1 {
		var enhanced bool
		results, enhanced = r.enhancer.Enhance(ctx, results, q)
		if err = ctx.Err(); err != nil {
			return nil, result.Analytics{}, fmt.Errorf("cross-modal enhancement: %w", err)
		}
		complete = complete && enhanced
	}

	applyBoosts(results, q)

	filtered := results[:0]
	for _, res := range results {
		if res.RelevanceScore >= o.MinScore {
			filtered = append(filtered, res)
		}
	}
	results = filtered

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if o.MaxResults > 0 && len(results) > o.MaxResults {
		results = results[:o.MaxResults]
	}

	took := time.Since(start)
	applied := q.Filters.Applied()
	for i := range results {
		results[i].Metadata.AppliedFilters = applied
		results[i].Metadata.SearchTime = took
	}

	if cacheable && complete {
		r.cache.Set(key, result.CloneAll(results))
	}
	return results, result.Summarize(results, took, false), nil
}

// collect gathers filtered candidates from every requested modality. complete
// is false when a modality search failed.
func (r *Retriever) collect(ctx context.Context, q query.Query, vec []float32) ([]result.Result, bool) {
	var results []result.Result
	complete := true
	seen := make(map[string]struct{})

	for _, m := range q.Modalities {
		hits, err := r.store.SearchByContentType(ctx, vec, m, vector.SearchOptions{
			Limit:           2 * q.Limit,
			Threshold:       q.Threshold,
			IncludeMetadata: true,
		})
		if err != nil {
			metrics.SearchModalityFailuresTotal.WithLabelValues(string(m), "retrieval").Inc()
			r.logger.Warn("Modality search failed",
				zap.String("modality", string(m)),
				zap.Error(err),
			)
			complete = false
			continue
		}

		for _, h := range hits {
			if _, dup := seen[h.ID]; dup {
				continue
			}
			emb, err := r.store.GetEmbedding(ctx, h.ID)
			if err != nil {
				r.logger.Debug("Skipping hit without embedding", zap.String("id", h.ID), zap.Error(err))
				continue
			}
			if !q.Filters.Match(emb) {
				continue
			}
			seen[h.ID] = struct{}{}
			results = append(results, result.New(emb.Content(), h.Score, emb.CreatedAt, emb.Vector))
		}
	}
	return results, complete
}
