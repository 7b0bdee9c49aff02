// Package vectorstore keeps content embeddings in Redis hashes behind one
// FT index and answers per-modality KNN queries with a type pre-filter.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/db"
	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

const defaultLimit = 10

// store is the consumer interface for the vector store (ISP).
type store interface {
	db.Pinger
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Options configures key layout and the vector index.
type Options struct {
	KeyPrefix      string
	Dimensions     int
	Algorithm      db.VectorAlgorithm
	M              int
	EFConstruction int
	// Recreate drops an existing index before EnsureIndex builds it again.
	Recreate bool
}

// Repo implements the search, ingest and health store contracts on Redis.
type Repo struct {
	store  store
	opts   Options
	logger *zap.Logger
}

// New creates a vector store repository.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	return &Repo{store: s, opts: opts, logger: logger}
}

// EnsureIndex creates the content index unless it already exists. With
// Options.Recreate an existing index is dropped first; stored hashes are kept
// and get reindexed by the server.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	name := r.indexName()
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists && !r.opts.Recreate {
		return nil
	}
	if exists {
		if err := r.store.DropIndex(ctx, name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
		r.logger.Info("Dropped vector index for rebuild", zap.String("index", name))
	}

	b := db.NewIndex(name).
		Prefix(r.contentPrefix()).
		Tag(fieldType).
		TagWithOpts(fieldTags, tagSeparator, false).
		Text(fieldTitle).
		Numeric(fieldCreatedAt)
	if r.opts.Algorithm == db.VectorFlat {
		b = b.VectorFlat(fieldVector, r.opts.Dimensions, db.DistanceCosine)
	} else {
		b = b.VectorHNSW(fieldVector, r.opts.Dimensions, db.DistanceCosine, r.opts.M, r.opts.EFConstruction)
	}
	def, err := b.Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	r.logger.Info("Vector index ready",
		zap.String("index", name),
		zap.Int("dimensions", r.opts.Dimensions),
		zap.String("algorithm", string(def.Fields[len(def.Fields)-1].VectorAlgo)),
	)
	return nil
}

// Upsert stores an embedding. Returns true if the id was new.
func (r *Repo) Upsert(ctx context.Context, e content.Embedding) (bool, error) {
	if r.opts.Dimensions > 0 && len(e.Vector) != r.opts.Dimensions {
		return false, fmt.Errorf("%w: got %d, index expects %d",
			domain.ErrVectorDimMismatch, len(e.Vector), r.opts.Dimensions)
	}
	fields, err := toHash(e)
	if err != nil {
		return false, err
	}

	key := r.contentKey(e.ID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	// HSET merges fields; drop the old hash so cleared metadata does not linger.
	if exists {
		if _, err := r.store.Del(ctx, key); err != nil {
			return false, fmt.Errorf("replace %s: %w", key, err)
		}
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	return !exists, nil
}

// GetEmbedding returns a stored embedding with its vector.
func (r *Repo) GetEmbedding(ctx context.Context, id string) (content.Embedding, error) {
	key := r.contentKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return content.Embedding{}, fmt.Errorf("%s: %w", id, domain.ErrEmbeddingNotFound)
		}
		return content.Embedding{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return fromHash(id, m)
}

// Delete removes an embedding.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.contentKey(id)
	deleted, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if !deleted {
		return fmt.Errorf("%s: %w", id, domain.ErrEmbeddingNotFound)
	}
	return nil
}

// SearchByContentType returns the nearest neighbors of vec within one modality,
// best first, dropping hits below opts.Threshold.
func (r *Repo) SearchByContentType(
	ctx context.Context, vec []float32, t content.Type, opts vector.SearchOptions,
) ([]vector.Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	q := &db.KNNQuery{
		IndexName:     r.indexName(),
		Filter:        db.TagFilter(fieldType, string(t)),
		VectorField:   fieldVector,
		Vector:        vec,
		K:             limit,
		ReturnFields:  []string{fieldType},
		IncludeVector: opts.IncludeVectors,
	}
	if opts.IncludeMetadata || opts.IncludeVectors {
		q.ReturnFields = metadataFields
	}

	res, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", t, err)
	}

	hits := make([]vector.Hit, 0, len(res.Entries))
	for _, entry := range res.Entries {
		if entry.Score < opts.Threshold {
			continue
		}
		id := strings.TrimPrefix(entry.Key, r.contentPrefix())
		hit := vector.Hit{ID: id, Score: entry.Score}
		if opts.IncludeMetadata {
			hit.Metadata = metadataFromHash(entry.Fields)
		}
		if opts.IncludeVectors {
			e, err := fromHash(id, entry.Fields)
			if err != nil {
				r.logger.Warn("Skipping unreadable hit", zap.String("id", id), zap.Error(err))
				continue
			}
			hit.Embedding = &e
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// StorageStats counts stored embeddings per modality.
func (r *Repo) StorageStats(ctx context.Context) (vector.StorageStats, error) {
	stats := vector.StorageStats{EmbeddingsByType: make(map[content.Type]int, len(content.AllTypes()))}
	for _, t := range content.AllTypes() {
		n, err := r.store.SearchCount(ctx, r.indexName(), db.TagFilter(fieldType, string(t)))
		if err != nil {
			return vector.StorageStats{}, fmt.Errorf("count %s: %w", t, err)
		}
		stats.EmbeddingsByType[t] = n
	}
	return stats, nil
}

// Ping checks the backing store.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Repo) indexName() string {
	return r.opts.KeyPrefix + "contents:idx"
}

func (r *Repo) contentPrefix() string {
	return r.opts.KeyPrefix + "content:"
}

func (r *Repo) contentKey(id string) string {
	return r.contentPrefix() + id
}
