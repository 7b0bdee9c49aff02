// Package memstore is an in-process vector store: one coder/hnsw graph per
// modality plus a map of the stored embeddings.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

const defaultLimit = 10

// Config tunes the HNSW graphs. Zero values take the library defaults.
type Config struct {
	// Dimensions pins the vector size; 0 adopts the size of the first upsert.
	Dimensions int
	M          int
	EfSearch   int
}

type entry struct {
	key       uint64
	embedding content.Embedding
}

// Store keeps embeddings in memory. Replaced and deleted items are removed
// from the id maps only; their graph nodes stay behind as orphans and are
// skipped at query time.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	dims    int
	graphs  map[content.Type]*hnsw.Graph[uint64]
	orphans map[content.Type]int
	items   map[string]*entry
	keys    map[uint64]string
	nextKey uint64
}

// New creates an empty store.
func New(cfg Config) *Store {
	return &Store{
		cfg:     cfg,
		dims:    cfg.Dimensions,
		graphs:  make(map[content.Type]*hnsw.Graph[uint64]),
		orphans: make(map[content.Type]int),
		items:   make(map[string]*entry),
		keys:    make(map[uint64]string),
	}
}

func (s *Store) graph(t content.Type) *hnsw.Graph[uint64] {
	g, ok := s.graphs[t]
	if ok {
		return g
	}
	g = hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	if s.cfg.M > 0 {
		g.M = s.cfg.M
	}
	if s.cfg.EfSearch > 0 {
		g.EfSearch = s.cfg.EfSearch
	}
	s.graphs[t] = g
	return g
}

// Upsert stores an embedding, replacing any previous one with the same id.
// Returns true if the id was new.
func (s *Store) Upsert(_ context.Context, e content.Embedding) (bool, error) {
	if !e.Type.IsValid() {
		return false, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidContent, e.Type)
	}
	if len(e.Vector) == 0 {
		return false, fmt.Errorf("%w: %s has no vector", domain.ErrInvalidContent, e.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims == 0 {
		s.dims = len(e.Vector)
	}
	if len(e.Vector) != s.dims {
		return false, fmt.Errorf("%w: got %d, store holds %d", domain.ErrVectorDimMismatch, len(e.Vector), s.dims)
	}

	old, exists := s.items[e.ID]
	if exists {
		s.orphan(old)
	}

	key := s.nextKey
	s.nextKey++
	s.graph(e.Type).Add(hnsw.MakeNode(key, normalized(e.Vector)))

	stored := e
	stored.Vector = append([]float32(nil), e.Vector...)
	stored.Metadata = e.Metadata.Clone()
	s.items[e.ID] = &entry{key: key, embedding: stored}
	s.keys[key] = e.ID
	return !exists, nil
}

// orphan unlinks an entry from the id maps. The caller holds the write lock.
func (s *Store) orphan(old *entry) {
	delete(s.keys, old.key)
	delete(s.items, old.embedding.ID)
	s.orphans[old.embedding.Type]++
}

// GetEmbedding returns a copy of a stored embedding.
func (s *Store) GetEmbedding(_ context.Context, id string) (content.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return content.Embedding{}, fmt.Errorf("%s: %w", id, domain.ErrEmbeddingNotFound)
	}
	return clone(it.embedding), nil
}

// Delete removes an embedding.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrEmbeddingNotFound)
	}
	s.orphan(it)
	return nil
}

// SearchByContentType returns the nearest neighbors of vec within one modality.
// Scores are cosine similarities clamped to [0, 1].
func (s *Store) SearchByContentType(
	_ context.Context, vec []float32, t content.Type, opts vector.SearchOptions,
) ([]vector.Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[t]
	if !ok || g.Len() == 0 {
		return []vector.Hit{}, nil
	}
	if len(vec) != s.dims {
		return nil, fmt.Errorf("%w: query has %d, store holds %d", domain.ErrVectorDimMismatch, len(vec), s.dims)
	}

	q := normalized(vec)
	// Orphans still occupy graph slots, so ask for enough neighbors to fill limit.
	nodes := g.Search(q, limit+s.orphans[t])

	hits := make([]vector.Hit, 0, min(limit, len(nodes)))
	for _, n := range nodes {
		id, ok := s.keys[n.Key]
		if !ok {
			continue
		}
		score := 1 - float64(g.Distance(q, n.Value))
		if math.IsNaN(score) {
			score = 0
		}
		score = math.Max(0, math.Min(1, score))
		if score < opts.Threshold {
			continue
		}
		hit := vector.Hit{ID: id, Score: score}
		it := s.items[id]
		if opts.IncludeMetadata {
			hit.Metadata = it.embedding.Metadata.Clone()
		}
		if opts.IncludeVectors {
			e := clone(it.embedding)
			hit.Embedding = &e
		}
		hits = append(hits, hit)
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// StorageStats counts live embeddings per modality.
func (s *Store) StorageStats(context.Context) (vector.StorageStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := vector.StorageStats{EmbeddingsByType: make(map[content.Type]int, len(content.AllTypes()))}
	for _, t := range content.AllTypes() {
		stats.EmbeddingsByType[t] = 0
	}
	for _, it := range s.items {
		stats.EmbeddingsByType[it.embedding.Type]++
	}
	return stats, nil
}

// Orphans reports graph nodes left behind by replacements and deletions.
func (s *Store) Orphans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.orphans {
		n += c
	}
	return n
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func clone(e content.Embedding) content.Embedding {
	e.Vector = append([]float32(nil), e.Vector...)
	e.Metadata = e.Metadata.Clone()
	return e
}

func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range out {
		out[i] *= inv
	}
	return out
}
