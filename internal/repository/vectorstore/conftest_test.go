package vectorstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/db"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// mockStore keeps hashes in a map; FT calls are scripted.
type mockStore struct {
	hashes      map[string]map[string]string
	indexExists bool
	created     *db.IndexDefinition
	createErr   error
	dropped     []string
	dropErr     error
	lastKNN     *db.KNNQuery
	knnResult   *db.SearchResult
	knnErr      error
	counts      map[string]int
	delCalls    int
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string), counts: make(map[string]int)}
}

func (m *mockStore) Ping(context.Context) error { return nil }

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h := m.hashes[key]
	if h == nil {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockStore) Del(_ context.Context, key string) (bool, error) {
	m.delCalls++
	_, ok := m.hashes[key]
	delete(m.hashes, key)
	return ok, nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return m.createErr
}

func (m *mockStore) DropIndex(_ context.Context, name string) error {
	m.dropped = append(m.dropped, name)
	if m.dropErr != nil {
		return m.dropErr
	}
	m.indexExists = false
	return nil
}

func (m *mockStore) IndexExists(context.Context, string) (bool, error) { return m.indexExists, nil }

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNN = q
	if m.knnErr != nil {
		return nil, m.knnErr
	}
	if m.knnResult == nil {
		return &db.SearchResult{}, nil
	}
	return m.knnResult, nil
}

func (m *mockStore) SearchCount(_ context.Context, _, query string) (int, error) {
	return m.counts[query], nil
}

func newTestRepo(t *testing.T, dims int) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(ms, Options{KeyPrefix: "ms:", Dimensions: dims}, zap.NewNop()), ms
}

func sampleEmbedding() content.Embedding {
	return content.Embedding{
		ID:     "img-1",
		Type:   content.Image,
		Vector: []float32{0.5, -0.25, 1},
		Data:   "s3://bucket/cat.png",
		Metadata: content.Metadata{
			Title:       "Cat",
			Description: "A sleeping cat",
			Tags:        []string{"pets", "cat"},
			Source:      "upload",
			Extra:       map[string]string{"camera": "x100"},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func hashKeys(m *mockStore) string {
	keys := make([]string, 0, len(m.hashes))
	for k := range m.hashes {
		keys = append(keys, k)
	}
	return strings.Join(keys, ",")
}
