package health

import (
	"context"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search works with reduced quality or coverage.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable and search cannot run.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckEmpty indicates a reachable store without any embeddings.
	CheckEmpty CheckResult = "empty"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status     Status                 `json:"status"`
	Checks     map[string]CheckResult `json:"checks"`
	Embeddings map[content.Type]int   `json:"embeddings,omitempty"`
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	storage   StorageReporter
	embedding EmbeddingChecker
}

// New creates a Service. storage and embedding can be nil.
func New(store StorePinger, storage StorageReporter, embedding EmbeddingChecker) *Service {
	return &Service{store: store, storage: storage, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult)}

	if err := s.store.Ping(ctx); err != nil {
		r.Checks["store"] = CheckError
		r.Status = Unhealthy
	} else {
		r.Checks["store"] = CheckOK
	}

	if s.storage != nil && r.Status != Unhealthy {
		switch st, err := s.storage.StorageStats(ctx); {
		case err != nil:
			r.Checks["index"] = CheckError
		case st.Total() == 0:
			r.Checks["index"] = CheckEmpty
		default:
			r.Checks["index"] = CheckOK
			r.Embeddings = st.EmbeddingsByType
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			r.Checks["embedding"] = CheckError
		} else {
			r.Checks["embedding"] = CheckOK
		}
	}

	if r.Status == Healthy {
		for _, v := range r.Checks {
			if v != CheckOK {
				r.Status = Degraded
				break
			}
		}
	}
	return r
}
