package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

// --- Mocks ---

type mockStore struct {
	pingErr  error
	statsErr error
	counts   map[content.Type]int
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) StorageStats(_ context.Context) (vector.StorageStats, error) {
	if m.statsErr != nil {
		return vector.StorageStats{}, m.statsErr
	}
	return vector.StorageStats{EmbeddingsByType: m.counts}, nil
}

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

func populated() *mockStore {
	return &mockStore{counts: map[content.Type]int{content.Text: 3, content.Code: 2}}
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	store := populated()
	r := New(store, store, &mockEmbeddingChecker{}).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"store", "index", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
	if r.Embeddings[content.Text] != 3 {
		t.Errorf("expected 3 text embeddings, got %d", r.Embeddings[content.Text])
	}
}

func TestCheck_StoreDown(t *testing.T) {
	store := populated()
	store.pingErr = errors.New("conn refused")
	r := New(store, store, &mockEmbeddingChecker{}).Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["store"] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks["store"])
	}
	if _, ok := r.Checks["index"]; ok {
		t.Error("index check should be skipped when the store is down")
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	store := populated()
	r := New(store, store, &mockEmbeddingChecker{err: errors.New("timeout")}).Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["store"] != CheckOK {
		t.Errorf("expected store %q, got %q", CheckOK, r.Checks["store"])
	}
	if r.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks["embedding"])
	}
}

func TestCheck_EmptyIndex(t *testing.T) {
	store := &mockStore{}
	r := New(store, store, nil).Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["index"] != CheckEmpty {
		t.Errorf("expected index %q, got %q", CheckEmpty, r.Checks["index"])
	}
}

func TestCheck_StatsError(t *testing.T) {
	store := populated()
	store.statsErr = errors.New("ft.info failed")
	r := New(store, store, nil).Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["index"] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks["index"])
	}
}

func TestCheck_OnlyStore(t *testing.T) {
	r := New(&mockStore{}, nil, nil).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 1 {
		t.Errorf("expected only the store check, got %v", r.Checks)
	}
}
