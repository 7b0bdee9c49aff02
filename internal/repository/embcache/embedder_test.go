package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain"
)

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2, 0.3},
		PromptTokens: 10,
		TotalTokens:  10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	first, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 10 {
		t.Errorf("miss should report provider tokens, got %d", first.TotalTokens)
	}
	if len(ms.data) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(ms.data))
	}
	for k, ttl := range ms.ttls {
		if !strings.HasPrefix(k, "ms:emb_cache:") || ttl != time.Hour {
			t.Errorf("entry %q cached with ttl %v", k, ttl)
		}
	}

	second, err := ce.Embed(ctx, "test text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("expected one provider call, got %d", inner.embedCalls)
	}
	if second.TotalTokens != 0 || second.Embedding[2] != 0.3 {
		t.Errorf("hit = %+v", second)
	}
}

func TestEmbed_ModelIsPartOfKey(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	a := New(inner, nil, Options{Model: "a"}, nil, zap.NewNop())
	b := New(inner, nil, Options{Model: "b"}, nil, zap.NewNop())
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("different models must not share cache keys")
	}
}

func TestEmbed_InnerError(t *testing.T) {
	ce, ms := newTestCachedEmbedder(t, &mockEmbedder{err: errors.New("provider down")})
	if _, err := ce.Embed(context.Background(), "test text"); err == nil {
		t.Fatal("expected error from inner embedder")
	}
	if len(ms.data) != 0 {
		t.Error("failures must not be cached")
	}
}

func TestEmbed_StoreFailuresDegradeToProvider(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getErr = errors.New("connection reset")
	ms.setErr = errors.New("connection reset")

	res, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("cache outages must not fail embedding: %v", err)
	}
	if len(res.Embedding) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestEmbed_CorruptEntryIsAMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("x")] = []byte{1, 2, 3}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if inner.embedCalls != 1 {
		t.Error("corrupt entry should fall through to the provider")
	}
}

func TestEmbed_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	ms := &mockKVStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
	ce := New(inner, ms, Options{}, counter, zap.NewNop())

	_, _ = ce.Embed(context.Background(), "x")
	_, _ = ce.Embed(context.Background(), "x")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
}

// --- BatchEmbed tests ---

func TestBatchEmbed_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:    []float32{0.1, 0.2},
		PromptTokens: 5,
		TotalTokens:  5,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("b")] = vectorToCacheBytes([]float32{0.9, 0.8})

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.Embeddings[1][0] != 0.9 || res.Embeddings[0][0] != 0.1 || res.Embeddings[2][0] != 0.1 {
		t.Errorf("positions scrambled: %v", res.Embeddings)
	}
	if inner.batchCalls != 1 || strings.Join(inner.batchTexts[0], ",") != "a,c" {
		t.Errorf("provider should see only misses, got %v", inner.batchTexts)
	}
	if res.TotalTokens != 10 {
		t.Errorf("tokens = %d, want 10", res.TotalTokens)
	}
	if len(ms.data) != 3 {
		t.Errorf("misses should be cached, have %d entries", len(ms.data))
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.data[ce.cacheKey("a")] = vectorToCacheBytes([]float32{1})
	ms.data[ce.cacheKey("b")] = vectorToCacheBytes([]float32{2})

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 0 {
		t.Error("all-hit batch must not reach the provider")
	}
	if res.Embeddings[1][0] != 2 {
		t.Errorf("unexpected embeddings %v", res.Embeddings)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{batchErr: errors.New("boom")})
	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{})
	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Errorf("empty batch = %+v, %v", res, err)
	}
}
