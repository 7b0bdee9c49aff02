package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/modalsearch/internal/domain"
)

// ErrorCode is a machine-readable error identifier in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnknownWeightProfile   ErrorCode = "unknown_weight_profile"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeContentNotFound        ErrorCode = "content_not_found"
	CodeResultNotFound         ErrorCode = "result_not_found"
	CodeNotFound               ErrorCode = "not_found"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeProviderUnavailable    ErrorCode = "provider_unavailable"
	CodeAllStrategiesFailed    ErrorCode = "all_strategies_failed"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		strategyFailureHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidContent, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidConfig, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnknownWeightProfile, http.StatusBadRequest, CodeUnknownWeightProfile),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingNotFound, http.StatusNotFound, CodeContentNotFound),
		sentinelHandler(domain.ErrResultNotFound, http.StatusNotFound, CodeResultNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusServiceUnavailable, CodeProviderUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrAllStrategiesFailed,
		domain.ErrInvalidQuery,
		domain.ErrInvalidContent,
		domain.ErrInvalidConfig,
		domain.ErrUnknownWeightProfile,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingNotFound,
		domain.ErrResultNotFound,
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrProviderUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// strategyFailureHandler reports which strategies failed in an ensemble search.
func strategyFailureHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrAllStrategiesFailed) {
		return false
	}
	failed := make([]string, 0)
	collectStrategies(err, &failed)
	writeJSON(w, http.StatusBadGateway, map[string]any{
		"code":       CodeAllStrategiesFailed,
		"message":    msg,
		"strategies": failed,
	})
	return true
}

// collectStrategies walks the error tree, including joined errors.
func collectStrategies(err error, out *[]string) {
	if err == nil {
		return
	}
	switch u := err.(type) { //nolint:errorlint // walking the tree by hand
	case *domain.StrategyError:
		*out = append(*out, u.Strategy)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			collectStrategies(e, out)
		}
	case interface{ Unwrap() error }:
		collectStrategies(u.Unwrap(), out)
	}
}
