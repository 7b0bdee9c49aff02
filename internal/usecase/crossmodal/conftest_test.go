package crossmodal

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

// --- Mocks ---

type mockStore struct {
	mu          sync.Mutex
	items       map[string]content.Embedding
	failTypes   map[content.Type]error
	searchCalls int
}

func newMockStore(items ...content.Embedding) *mockStore {
	m := &mockStore{items: make(map[string]content.Embedding), failTypes: make(map[content.Type]error)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockStore) SearchByContentType(
	_ context.Context, vec []float32, t content.Type, opts vector.SearchOptions,
) ([]vector.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	if err := m.failTypes[t]; err != nil {
		return nil, err
	}
	var hits []vector.Hit
	for _, it := range m.items {
		if it.Type != t {
			continue
		}
		s := cosine(vec, it.Vector)
		if s < opts.Threshold {
			continue
		}
		h := vector.Hit{ID: it.ID, Score: s, Metadata: it.Metadata}
		if opts.IncludeVectors {
			e := it
			h.Embedding = &e
		}
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func (m *mockStore) GetEmbedding(_ context.Context, id string) (content.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return content.Embedding{}, domain.ErrEmbeddingNotFound
	}
	return it, nil
}

func (m *mockStore) setFailure(t content.Type, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failTypes, t)
		return
	}
	m.failTypes[t] = err
}

func (m *mockStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func emb(id string, t content.Type, vec []float32, tags ...string) content.Embedding {
	return content.Embedding{ID: id, Type: t, Vector: vec, Metadata: content.Metadata{Title: id, Tags: tags}}
}

var errBackend = errors.New("backend unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newEnhancer(store VectorStore, cfg Config, opts ...Option) *Enhancer {
	return New(store, cfg, zap.NewNop(), opts...)
}
