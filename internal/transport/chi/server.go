// Package chi exposes the search, ingest and health services over HTTP.
package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	domrank "github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/modalsearch/internal/logger"
	healthuc "github.com/kailas-cloud/modalsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/modalsearch/internal/usecase/search"
)

const maxBatchSize = 100

// Server holds the HTTP handlers.
type Server struct {
	search        SearchService
	ingest        IngestService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, ingest IngestService, health HealthService, logger *zap.Logger) *Server {
	return &Server{
		search:        search,
		ingest:        ingest,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Mount registers every route on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/search", func(r chi.Router) {
		r.Post("/", s.Search)
		r.Post("/strategies", s.SearchWithStrategies)
		r.Post("/explain", s.Explain)
		r.Post("/warmup", s.Warmup)
	})

	r.Get("/stats", s.Stats)
	r.Delete("/cache", s.ClearCaches)
	r.Get("/config", s.GetConfig)
	r.Patch("/config", s.PatchConfig)

	r.Route("/contents", func(r chi.Router) {
		r.Post("/batch", s.BatchUpsert)
		r.Post("/batch-delete", s.BatchDelete)
		r.Put("/{id}", s.UpsertContent)
		r.Get("/{id}", s.GetContent)
		r.Delete("/{id}", s.DeleteContent)
	})
}

type searchRequest struct {
	query.Query
	Options query.Options `json:"options"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := s.search.Search(r.Context(), req.Query, req.Options)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type strategiesRequest struct {
	query.Query
	Strategies []searchuc.Strategy `json:"strategies"`
}

// SearchWithStrategies handles POST /search/strategies.
func (s *Server) SearchWithStrategies(w http.ResponseWriter, r *http.Request) {
	var req strategiesRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Strategies) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "at least one strategy is required")
		return
	}
	for i, st := range req.Strategies {
		if st.Name == "" {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("strategy %d has no name", i))
			return
		}
		if st.Weight <= 0 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				fmt.Sprintf("strategy %q weight must be positive", st.Name))
			return
		}
	}

	resp, err := s.search.SearchWithStrategies(r.Context(), req.Query, req.Strategies)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type explainRequest struct {
	searchRequest
	ResultID string `json:"result_id"`
}

// Explain handles POST /search/explain.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ResultID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "result_id is required")
		return
	}

	text, err := s.search.Explain(r.Context(), req.Query, req.Options, req.ResultID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result_id": req.ResultID, "explanation": text})
}

type warmupRequest struct {
	Queries []query.Query `json:"queries"`
}

// Warmup handles POST /search/warmup.
func (s *Server) Warmup(w http.ResponseWriter, r *http.Request) {
	var req warmupRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Queries) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("too many warm-up queries (max %d)", maxBatchSize))
		return
	}

	report, err := s.search.Warmup(r.Context(), req.Queries)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.search.Stats(r.Context()))
}

// ClearCaches handles DELETE /cache.
func (s *Server) ClearCaches(w http.ResponseWriter, _ *http.Request) {
	s.search.ClearCaches()
	w.WriteHeader(http.StatusNoContent)
}

// configResponse is the wire form of the search config with readable durations.
type configResponse struct {
	DefaultLimit        int                        `json:"default_limit"`
	DefaultThreshold    float64                    `json:"default_threshold"`
	RequestTimeout      string                     `json:"request_timeout"`
	ResultCacheTTL      string                     `json:"result_cache_ttl"`
	SemanticExpansion   bool                       `json:"semantic_expansion"`
	IncludeCrossModal   bool                       `json:"include_cross_modal"`
	ParallelStrategies  bool                       `json:"parallel_strategies"`
	DiversityFactor     float64                    `json:"diversity_factor"`
	MaxSimilarResults   int                        `json:"max_similar_results"`
	Presets             map[string]domrank.Weights `json:"presets"`
	MaxMatchesPerType   int                        `json:"max_matches_per_type"`
	SimilarityThreshold float64                    `json:"similarity_threshold"`
	SemanticBridging    bool                       `json:"semantic_bridging"`
	DisabledPairs       []string                   `json:"disabled_pairs"`
}

func configToResponse(c searchuc.Config) configResponse {
	disabled := make([]string, 0, len(c.CrossModal.Disabled))
	for p, off := range c.CrossModal.Disabled {
		if off {
			disabled = append(disabled, p.String())
		}
	}
	sort.Strings(disabled)

	return configResponse{
		DefaultLimit:        c.DefaultLimit,
		DefaultThreshold:    c.DefaultThreshold,
		RequestTimeout:      c.RequestTimeout.String(),
		ResultCacheTTL:      c.ResultCacheTTL.String(),
		SemanticExpansion:   c.SemanticExpansion,
		IncludeCrossModal:   c.IncludeCrossModal,
		ParallelStrategies:  c.ParallelStrategies,
		DiversityFactor:     c.DiversityFactor,
		MaxSimilarResults:   c.MaxSimilarResults,
		Presets:             c.Presets,
		MaxMatchesPerType:   c.CrossModal.MaxMatchesPerType,
		SimilarityThreshold: c.CrossModal.SimilarityThreshold,
		SemanticBridging:    c.CrossModal.SemanticBridging,
		DisabledPairs:       disabled,
	}
}

// GetConfig handles GET /config.
func (s *Server) GetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configToResponse(s.search.Config()))
}

// configPatchRequest accepts result_cache_ttl as a Go duration string ("90s").
type configPatchRequest struct {
	searchuc.ConfigPatch
	ResultCacheTTL *string `json:"result_cache_ttl,omitempty"`
}

// PatchConfig handles PATCH /config.
func (s *Server) PatchConfig(w http.ResponseWriter, r *http.Request) {
	var req configPatchRequest
	if !decode(w, r, &req) {
		return
	}
	patch := req.ConfigPatch
	if req.ResultCacheTTL != nil {
		d, err := time.ParseDuration(*req.ResultCacheTTL)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "result_cache_ttl: "+err.Error())
			return
		}
		patch.ResultCacheTTL = &d
	}

	cfg, err := s.search.UpdateConfig(patch)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configToResponse(cfg))
}

type upsertContentRequest struct {
	Type     content.Type     `json:"type"`
	Data     string           `json:"data"`
	Metadata content.Metadata `json:"metadata"`
}

// UpsertContent handles PUT /contents/{id}.
func (s *Server) UpsertContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req upsertContentRequest
	if !decode(w, r, &req) {
		return
	}

	c := content.Content{ID: id, Type: req.Type, Data: req.Data, Metadata: req.Metadata}
	created, err := s.ingest.Upsert(r.Context(), c)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/contents/"+id)
	}
	writeJSON(w, status, c)
}

// GetContent handles GET /contents/{id}.
func (s *Server) GetContent(w http.ResponseWriter, r *http.Request) {
	c, err := s.ingest.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteContent handles DELETE /contents/{id}.
func (s *Server) DeleteContent(w http.ResponseWriter, r *http.Request) {
	res := s.ingest.Delete(r.Context(), []string{chi.URLParam(r, "id")})
	if err := res[0].Err(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchUpsertRequest struct {
	Items []content.Content `json:"items"`
}

// BatchUpsert handles POST /contents/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req batchUpsertRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("batch size exceeds %d", maxBatchSize))
		return
	}

	results := s.ingest.UpsertBatch(r.Context(), req.Items)
	writeJSON(w, http.StatusOK, batchToResponse(results))
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchDelete handles POST /contents/batch-delete.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.IDs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("batch size exceeds %d", maxBatchSize))
		return
	}

	results := s.ingest.Delete(r.Context(), req.IDs)
	writeJSON(w, http.StatusOK, batchToResponse(results))
}

type batchItemResponse struct {
	ID           string              `json:"id"`
	Type         content.Type        `json:"type,omitempty"`
	Status       dombatch.ItemStatus `json:"status"`
	ErrorCode    ErrorCode           `json:"error_code,omitempty"`
	ErrorMessage string              `json:"error,omitempty"`
}

type batchResponse struct {
	Items   []batchItemResponse `json:"items"`
	Summary dombatch.Summary    `json:"summary"`
}

func batchToResponse(results []dombatch.Result) batchResponse {
	items := make([]batchItemResponse, len(results))
	for i, r := range results {
		item := batchItemResponse{ID: r.ID(), Type: r.Type(), Status: r.Status()}
		if err := r.Err(); err != nil {
			item.ErrorCode = batchErrorCode(err)
			item.ErrorMessage = safeDomainMessage(err)
		}
		items[i] = item
	}
	return batchResponse{Items: items, Summary: dombatch.Summarize(results)}
}

// batchErrorCode picks the code the first matching sentinel handler would use.
func batchErrorCode(err error) ErrorCode {
	rec := &codeRecorder{header: http.Header{}}
	for _, h := range defaultErrorHandlers() {
		if h(rec, err, "") {
			return rec.code
		}
	}
	return CodeInternalError
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// requestLogger prefers the request-scoped logger set by WideEventMiddleware.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l := logpkg.FromContext(r.Context()); l.Core().Enabled(zap.FatalLevel) {
		return l
	}
	return s.logger
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// codeRecorder captures the error code an errorHandler writes.
type codeRecorder struct {
	header http.Header
	code   ErrorCode
}

func (c *codeRecorder) Header() http.Header { return c.header }
func (c *codeRecorder) WriteHeader(int)     {}
func (c *codeRecorder) Write(b []byte) (int, error) {
	var body struct {
		Code ErrorCode `json:"code"`
	}
	if json.Unmarshal(b, &body) == nil {
		c.code = body.Code
	}
	return len(b), nil
}
