package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
)

type flakyEmbedder struct {
	err   error
	calls int
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1}}, nil
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxRequests: 1, Timeout: time.Hour, MinRequests: 2, FailureRatio: 0.5}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	inner := &flakyEmbedder{err: domain.ErrEmbeddingProviderError}
	b := NewBreaker(inner, "trip-test", testBreakerConfig(), zap.NewNop())
	ctx := context.Background()

	for range 2 {
		if _, err := b.Embed(ctx, "x"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
			t.Fatalf("expected provider error while closed, got %v", err)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	_, err := b.Embed(ctx, "x")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable while open, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("open breaker must not call the provider, calls = %d", inner.calls)
	}
	if err := b.HealthCheck(ctx); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Errorf("health check while open = %v", err)
	}
	if got := testutil.ToFloat64(metrics.EmbeddingBreakerState.WithLabelValues("trip-test")); got != float64(gobreaker.StateOpen) {
		t.Errorf("breaker gauge = %v, want %d", got, gobreaker.StateOpen)
	}
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	inner := &flakyEmbedder{err: context.Canceled}
	b := NewBreaker(inner, "cancel-test", testBreakerConfig(), zap.NewNop())

	for range 5 {
		_, _ = b.Embed(context.Background(), "x")
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("state = %v, cancellations must not open the breaker", b.State())
	}
}

func TestBreaker_BatchFallsBackToSingle(t *testing.T) {
	inner := &flakyEmbedder{}
	b := NewBreaker(inner, "batch-test", DefaultBreakerConfig(), zap.NewNop())

	res, err := b.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || inner.calls != 3 {
		t.Errorf("embeddings = %d, calls = %d", len(res.Embeddings), inner.calls)
	}
	if err := b.HealthCheck(context.Background()); err != nil {
		t.Errorf("closed breaker over a plain embedder should be healthy, got %v", err)
	}
}
