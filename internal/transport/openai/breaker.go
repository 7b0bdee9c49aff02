package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
)

// BreakerConfig tunes the provider circuit breaker.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears closed-state counts; 0 never clears them.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// MinRequests before the failure ratio is considered.
	MinRequests uint32
	// FailureRatio that trips the breaker.
	FailureRatio float64
}

// DefaultBreakerConfig returns conservative defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// Breaker guards an embedder with a circuit breaker. While open, calls fail
// fast with domain.ErrProviderUnavailable.
type Breaker struct {
	inner domain.Embedder
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner. provider labels the state gauge and the breaker name.
func NewBreaker(inner domain.Embedder, provider string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	st := gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < cfg.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= cfg.FailureRatio
		},
		// Cancellations are the caller's doing, not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.EmbeddingBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("Embedding circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	metrics.EmbeddingBreakerState.WithLabelValues(provider).Set(float64(gobreaker.StateClosed))

	return &Breaker{inner: inner, cb: gobreaker.NewCircuitBreaker(st)}
}

// Embed implements domain.Embedder.
func (b *Breaker) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Embed(ctx, text)
	})
	if err != nil {
		return domain.EmbeddingResult{}, mapBreakerErr(err)
	}
	return res.(domain.EmbeddingResult), nil
}

// BatchEmbed implements domain.BatchEmbedder, falling back to per-text calls.
func (b *Breaker) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		if be, ok := b.inner.(domain.BatchEmbedder); ok {
			return be.BatchEmbed(ctx, texts)
		}
		return domain.BatchFallback(ctx, b.inner, texts)
	})
	if err != nil {
		return domain.BatchEmbeddingResult{}, mapBreakerErr(err)
	}
	return res.(domain.BatchEmbeddingResult), nil
}

// HealthCheck reports an open breaker as unavailable without calling the provider.
func (b *Breaker) HealthCheck(ctx context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("breaker open: %w", domain.ErrProviderUnavailable)
	}
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// State exposes the breaker state for diagnostics.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}
	return err
}
