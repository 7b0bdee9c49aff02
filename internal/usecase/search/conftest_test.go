package search

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

type mockEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	block bool
	texts []string
}

func (m *mockEmbedder) Embed(ctx context.Context, c content.Content) (content.Embedding, error) {
	m.mu.Lock()
	m.texts = append(m.texts, c.Data)
	vec, err, block := m.vec, m.err, m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return content.Embedding{}, ctx.Err()
	}
	if err != nil {
		return content.Embedding{}, err
	}
	return content.Embedding{ID: c.ID, Type: c.Type, Vector: vec, Data: c.Data}, nil
}

func (m *mockEmbedder) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

type mockStore struct {
	mu          sync.Mutex
	items       map[string]content.Embedding
	failTypes   map[content.Type]error
	statsErr    error
	searchCalls int
	// blockAfter makes every search past that many calls wait for ctx; 0 disables.
	blockAfter int
	// rawScores returns hits below the requested threshold too.
	rawScores bool
}

func newMockStore(items ...content.Embedding) *mockStore {
	m := &mockStore{items: make(map[string]content.Embedding), failTypes: make(map[content.Type]error)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockStore) SearchByContentType(
	ctx context.Context, vec []float32, t content.Type, opts vector.SearchOptions,
) ([]vector.Hit, error) {
	m.mu.Lock()
	m.searchCalls++
	if m.blockAfter > 0 && m.searchCalls > m.blockAfter {
		m.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	defer m.mu.Unlock()
	if err := m.failTypes[t]; err != nil {
		return nil, err
	}
	var hits []vector.Hit
	for _, it := range m.items {
		if it.Type != t {
			continue
		}
		s := cosine(vec, it.Vector)
		if s < opts.Threshold && !m.rawScores {
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

func (m *mockStore) StorageStats(_ context.Context) (vector.StorageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statsErr != nil {
		return vector.StorageStats{}, m.statsErr
	}
	st := vector.StorageStats{EmbeddingsByType: make(map[content.Type]int)}
	for _, it := range m.items {
		st.EmbeddingsByType[it.Type]++
	}
	return st, nil
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

func (m *mockStore) setBlockAfter(n int) {
	m.mu.Lock()
	m.blockAfter = n
	m.mu.Unlock()
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

// --- Fixtures ---

var errBackend = errors.New("backend unavailable")

var queryVec = []float32{1, 0, 0}

func emb(id string, t content.Type, vec []float32, tags ...string) content.Embedding {
	return content.Embedding{
		ID:        id,
		Type:      t,
		Vector:    vec,
		Data:      "body of " + id,
		Metadata:  content.Metadata{Title: id, Tags: tags},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// fixtureCorpus is 3 TEXT and 2 CODE items. Against queryVec, t1, t2 and c1
// score above 0.3 while t3 and c2 do not.
func fixtureCorpus() *mockStore {
	return newMockStore(
		emb("t1", content.Text, []float32{1, 0, 0}, "ml"),
		emb("t2", content.Text, []float32{0.6, 0.8, 0}),
		emb("t3", content.Text, []float32{0, 1, 0}),
		emb("c1", content.Code, []float32{0.8, 0.6, 0}, "ml"),
		emb("c2", content.Code, []float32{0.2, 0, 0.98}),
	)
}

func newTestService(store VectorStore, embedder Embedder, cfg Config) *Service {
	return New(embedder, store, cfg, zap.NewNop())
}
