package vectorstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/db"
	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
)

func TestUpsertAndGet_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t, 3)
	ctx := context.Background()
	e := sampleEmbedding()

	created, err := repo.Upsert(ctx, e)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should report created")
	}
	if _, ok := ms.hashes["ms:content:img-1"]; !ok {
		t.Fatalf("expected key ms:content:img-1, have %s", hashKeys(ms))
	}

	got, err := repo.GetEmbedding(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if !reflect.DeepEqual(got, e) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, e)
	}

	e.Metadata.Extra = nil
	created, err = repo.Upsert(ctx, e)
	if err != nil || created {
		t.Fatalf("second upsert = %v, %v", created, err)
	}
	if _, ok := ms.hashes["ms:content:img-1"][fieldExtra]; ok {
		t.Error("replaced item kept a stale extra field")
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	repo, _ := newTestRepo(t, 4)
	_, err := repo.Upsert(context.Background(), sampleEmbedding())
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestUpsert_TagsWithSeparator(t *testing.T) {
	repo, ms := newTestRepo(t, 0)
	e := sampleEmbedding()
	e.Metadata.Tags = []string{"a,b", "c"}
	if _, err := repo.Upsert(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if got := ms.hashes["ms:content:img-1"][fieldTags]; got != "a b,c" {
		t.Errorf("tags field = %q", got)
	}
}

func TestGetEmbedding_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t, 3)
	_, err := repo.GetEmbedding(context.Background(), "nope")
	if !errors.Is(err, domain.ErrEmbeddingNotFound) {
		t.Errorf("expected ErrEmbeddingNotFound, got %v", err)
	}
}

func TestGetEmbedding_LooseFields(t *testing.T) {
	repo, ms := newTestRepo(t, 0)
	ms.hashes["ms:content:x"] = map[string]string{
		fieldType:      "Code",
		fieldCreatedAt: "1700000000000",
		fieldExtra:     `{"lang":"go"}`,
	}
	got, err := repo.GetEmbedding(context.Background(), "x")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if got.Type != content.Code || got.CreatedAt.UnixMilli() != 1700000000000 || got.Metadata.Extra["lang"] != "go" {
		t.Errorf("unexpected embedding %+v", got)
	}
	if got.Metadata.Tags == nil {
		t.Error("tags should be an empty slice, not nil")
	}

	ms.hashes["ms:content:x"][fieldType] = "smell"
	if _, err := repo.GetEmbedding(context.Background(), "x"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t, 3)
	ctx := context.Background()
	if _, err := repo.Upsert(ctx, sampleEmbedding()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "img-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "img-1"); !errors.Is(err, domain.ErrEmbeddingNotFound) {
		t.Errorf("second delete: expected ErrEmbeddingNotFound, got %v", err)
	}
}

func TestSearchByContentType(t *testing.T) {
	repo, ms := newTestRepo(t, 3)
	ms.knnResult = &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
		{Key: "ms:content:i1", Score: 0.92, Fields: map[string]string{fieldType: "image", fieldTitle: "Cat", fieldTags: "pets"}},
		{Key: "ms:content:i2", Score: 0.61, Fields: map[string]string{fieldType: "image"}},
		{Key: "ms:content:i3", Score: 0.2, Fields: map[string]string{fieldType: "image"}},
	}}

	hits, err := repo.SearchByContentType(context.Background(), []float32{1, 0, 0}, content.Image,
		vector.SearchOptions{Limit: 20, Threshold: 0.5, IncludeMetadata: true})
	if err != nil {
		t.Fatalf("SearchByContentType: %v", err)
	}

	q := ms.lastKNN
	if q.IndexName != "ms:contents:idx" || q.Filter != "@type:{image}" || q.K != 20 || q.IncludeVector {
		t.Errorf("unexpected query %+v", q)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above threshold, got %+v", hits)
	}
	if hits[0].ID != "i1" || hits[0].Metadata.Title != "Cat" || hits[0].Metadata.Tags[0] != "pets" {
		t.Errorf("hit 0 = %+v", hits[0])
	}
	if hits[0].Embedding != nil {
		t.Error("vectors were not requested")
	}
}

func TestSearchByContentType_WithVectors(t *testing.T) {
	repo, ms := newTestRepo(t, 2)
	ms.knnResult = &db.SearchResult{Entries: []db.SearchEntry{
		{Key: "ms:content:a", Score: 0.9, Fields: map[string]string{fieldType: "audio", fieldVector: vectorToBytes([]float32{1, 2})}},
		{Key: "ms:content:b", Score: 0.8, Fields: map[string]string{fieldType: "bogus"}},
	}}

	hits, err := repo.SearchByContentType(context.Background(), []float32{1, 0}, content.Audio,
		vector.SearchOptions{IncludeVectors: true})
	if err != nil {
		t.Fatalf("SearchByContentType: %v", err)
	}
	if ms.lastKNN.K != defaultLimit || !ms.lastKNN.IncludeVector {
		t.Errorf("unexpected query %+v", ms.lastKNN)
	}
	if len(hits) != 1 || hits[0].Embedding == nil || !reflect.DeepEqual(hits[0].Embedding.Vector, []float32{1, 2}) {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchByContentType_Error(t *testing.T) {
	repo, ms := newTestRepo(t, 2)
	ms.knnErr = errors.New("boom")
	if _, err := repo.SearchByContentType(context.Background(), []float32{1}, content.Text, vector.SearchOptions{}); err == nil {
		t.Error("expected error")
	}
}

func TestStorageStats(t *testing.T) {
	repo, ms := newTestRepo(t, 2)
	ms.counts["@type:{text}"] = 4
	ms.counts["@type:{video}"] = 1

	stats, err := repo.StorageStats(context.Background())
	if err != nil {
		t.Fatalf("StorageStats: %v", err)
	}
	if stats.Total() != 5 || stats.EmbeddingsByType[content.Text] != 4 || stats.EmbeddingsByType[content.Code] != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.EmbeddingsByType) != len(content.AllTypes()) {
		t.Errorf("every modality should be reported, got %v", stats.EmbeddingsByType)
	}
}

func TestEnsureIndex(t *testing.T) {
	repo, ms := newTestRepo(t, 384)
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	def := ms.created
	if def == nil || def.Name != "ms:contents:idx" || def.Prefixes[0] != "ms:content:" {
		t.Fatalf("unexpected definition %+v", def)
	}
	v := def.Fields[len(def.Fields)-1]
	if v.Type != db.IndexFieldVector || v.VectorDim != 384 || v.VectorAlgo != db.VectorHNSW {
		t.Errorf("vector field = %+v", v)
	}
	kinds := make(map[string]db.IndexFieldType, len(def.Fields))
	for _, f := range def.Fields {
		kinds[f.Name] = f.Type
	}
	if kinds["title"] != db.IndexFieldText || kinds["created_at"] != db.IndexFieldNumeric {
		t.Errorf("title and created_at should be TEXT and NUMERIC, got %v", kinds)
	}

	ms.created, ms.createErr = nil, db.ErrIndexExists
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Errorf("a concurrent create should be tolerated, got %v", err)
	}

	ms.indexExists, ms.created = true, nil
	if err := repo.EnsureIndex(context.Background()); err != nil || ms.created != nil {
		t.Errorf("existing index must not be recreated: %v", err)
	}
	if len(ms.dropped) != 0 {
		t.Errorf("index dropped without Recreate: %v", ms.dropped)
	}
}

func TestEnsureIndex_Recreate(t *testing.T) {
	ms := newMockStore()
	ms.indexExists = true
	repo := New(ms, Options{KeyPrefix: "ms:", Dimensions: 768, Recreate: true}, zap.NewNop())

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if len(ms.dropped) != 1 || ms.dropped[0] != "ms:contents:idx" {
		t.Errorf("dropped = %v, want the content index once", ms.dropped)
	}
	if ms.created == nil || ms.created.Fields[len(ms.created.Fields)-1].VectorDim != 768 {
		t.Fatalf("index not rebuilt with new dimensions: %+v", ms.created)
	}

	ms.indexExists, ms.created, ms.dropErr = true, nil, errors.New("READONLY")
	if err := repo.EnsureIndex(context.Background()); err == nil {
		t.Error("expected drop failure to surface")
	}
	if ms.created != nil {
		t.Error("index created after a failed drop")
	}
}
