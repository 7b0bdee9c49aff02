package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	healthuc "github.com/kailas-cloud/modalsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/modalsearch/internal/usecase/search"
)

type mockSearch struct {
	searchFn     func(query.Query, query.Options) (searchuc.Response, error)
	strategiesFn func(query.Query, []searchuc.Strategy) (searchuc.EnsembleResponse, error)
	explainFn    func(query.Query, string) (string, error)
	warmed       []query.Query
	cleared      int
	cfg          searchuc.Config
	patchErr     error
	lastPatch    searchuc.ConfigPatch
}

func (m *mockSearch) Search(_ context.Context, q query.Query, o query.Options) (searchuc.Response, error) {
	return m.searchFn(q, o)
}

func (m *mockSearch) SearchWithStrategies(
	_ context.Context, q query.Query, s []searchuc.Strategy,
) (searchuc.EnsembleResponse, error) {
	return m.strategiesFn(q, s)
}

func (m *mockSearch) Explain(_ context.Context, q query.Query, _ query.Options, id string) (string, error) {
	return m.explainFn(q, id)
}

func (m *mockSearch) Warmup(_ context.Context, qs []query.Query) (searchuc.WarmupReport, error) {
	m.warmed = qs
	return searchuc.WarmupReport{Warmed: len(qs)}, nil
}

func (m *mockSearch) Stats(context.Context) searchuc.Stats {
	return searchuc.Stats{TotalQueries: 7}
}

func (m *mockSearch) ClearCaches() { m.cleared++ }

func (m *mockSearch) Config() searchuc.Config { return m.cfg }

func (m *mockSearch) UpdateConfig(p searchuc.ConfigPatch) (searchuc.Config, error) {
	m.lastPatch = p
	if m.patchErr != nil {
		return m.cfg, m.patchErr
	}
	if p.DefaultLimit != nil {
		m.cfg.DefaultLimit = *p.DefaultLimit
	}
	if p.ResultCacheTTL != nil {
		m.cfg.ResultCacheTTL = *p.ResultCacheTTL
	}
	return m.cfg, nil
}

type mockIngest struct {
	items map[string]content.Content
}

func newMockIngest() *mockIngest {
	return &mockIngest{items: make(map[string]content.Content)}
}

func (m *mockIngest) Upsert(_ context.Context, c content.Content) (bool, error) {
	if !c.Type.IsValid() {
		return false, domain.ErrInvalidContent
	}
	_, exists := m.items[c.ID]
	m.items[c.ID] = c
	return !exists, nil
}

func (m *mockIngest) UpsertBatch(ctx context.Context, items []content.Content) []dombatch.Result {
	out := make([]dombatch.Result, len(items))
	for i, c := range items {
		if _, err := m.Upsert(ctx, c); err != nil {
			out[i] = dombatch.NewError(c.ID, c.Type, err)
			continue
		}
		out[i] = dombatch.NewOK(c.ID, c.Type)
	}
	return out
}

func (m *mockIngest) Get(_ context.Context, id string) (content.Content, error) {
	c, ok := m.items[id]
	if !ok {
		return content.Content{}, domain.ErrEmbeddingNotFound
	}
	return c, nil
}

func (m *mockIngest) Delete(_ context.Context, ids []string) []dombatch.Result {
	out := make([]dombatch.Result, len(ids))
	for i, id := range ids {
		if _, ok := m.items[id]; !ok {
			out[i] = dombatch.NewError(id, "", domain.ErrEmbeddingNotFound)
			continue
		}
		delete(m.items, id)
		out[i] = dombatch.NewOK(id, "")
	}
	return out
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testEnv struct {
	search *mockSearch
	ingest *mockIngest
	health *mockHealth
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		search: &mockSearch{cfg: searchuc.DefaultConfig()},
		ingest: newMockIngest(),
		health: &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	r := chi.NewRouter()
	NewServer(env.search, env.ingest, env.health, zap.NewNop()).Mount(r)
	env.router = r
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}
