package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a query that fails validation after normalization.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidContent signals a content item that cannot be ingested.
	ErrInvalidContent = errors.New("invalid content")
	// ErrEmbeddingNotFound signals a missing embedding in the vector store.
	ErrEmbeddingNotFound = errors.New("embedding not found")
	// ErrResultNotFound signals that a result id is absent from a search response.
	ErrResultNotFound = errors.New("result not found")
	// ErrUnknownWeightProfile signals a reference to an unconfigured ranking preset.
	ErrUnknownWeightProfile = errors.New("unknown weight profile")
	// ErrAllStrategiesFailed signals that no ranking strategy produced results.
	ErrAllStrategiesFailed = errors.New("all strategies failed")
	// ErrInvalidConfig signals a rejected configuration update.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrProviderUnavailable signals an open circuit breaker in front of the provider.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
)

// StrategyError wraps a single strategy failure inside an ensemble search.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %q: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }
