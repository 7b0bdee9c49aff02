package search

import (
	"math"
	"testing"
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

func TestResultCacheKey(t *testing.T) {
	base := query.Normalize(mlQuery(), query.Defaults{})
	opts := RetrieveOptions{CrossModal: true, Expansion: true, MaxResults: 5}

	k1, ok := resultCacheKey(base, opts)
	if !ok {
		t.Fatal("key not computed")
	}

	same := base
	same.Filters = filter.Filters{}
	if k2, _ := resultCacheKey(same, opts); k2 != k1 {
		t.Error("equal queries must share a key")
	}

	tagsA, tagsB := base, base
	tagsA.Filters = filter.Filters{Tags: []string{"b", "A"}}
	tagsB.Filters = filter.Filters{Tags: []string{"a", "B"}}
	ka, _ := resultCacheKey(tagsA, opts)
	kb, _ := resultCacheKey(tagsB, opts)
	if ka != kb {
		t.Error("tag order and case must not change the key")
	}

	reordered := base
	reordered.Modalities = []content.Type{content.Code, content.Text}
	if k, _ := resultCacheKey(reordered, opts); k == k1 {
		t.Error("modality order drives the position boost and must change the key")
	}

	noCM := opts
	noCM.CrossModal = false
	if k, _ := resultCacheKey(base, noCM); k == k1 {
		t.Error("cross-modal option must change the key")
	}

	dated := base
	dated.Filters = filter.Filters{DateRange: &filter.DateRange{Start: time.Unix(100, 0)}}
	if k, _ := resultCacheKey(dated, opts); k == k1 {
		t.Error("date range must change the key")
	}

	nan := opts
	nan.MinScore = math.NaN()
	if _, ok := resultCacheKey(base, nan); ok {
		t.Error("NaN options must not be cacheable")
	}
}

func TestApplyBoosts(t *testing.T) {
	q := query.Normalize(query.Query{
		Text:       "sorting algorithm",
		Modalities: []content.Type{content.Code, content.Text},
	}, query.Defaults{})

	mk := func(id string, tp content.Type, score float64, title string, tags []string, matches int) result.Result {
		r := result.New(content.Content{ID: id, Type: tp, Metadata: content.Metadata{Title: title, Tags: tags}},
			score, time.Time{}, nil)
		for range matches {
			r.CrossModalMatches = append(r.CrossModalMatches, result.CrossModalMatch{})
		}
		return r
	}

	rs := []result.Result{
		mk("plain", content.Audio, 0.5, "", nil, 0),
		mk("first-modality", content.Code, 0.5, "", nil, 0),
		mk("second-modality", content.Text, 0.5, "", nil, 0),
		mk("matches", content.Audio, 0.5, "", nil, 5),
		mk("metadata", content.Audio, 0.5, "Sorting Algorithm notes", []string{"sorting", "algorithms"}, 0),
		mk("capped", content.Code, 0.95, "sorting", nil, 3),
	}
	applyBoosts(rs, q)

	want := map[string]float64{
		"plain":           0.5,
		"first-modality":  0.6,
		"second-modality": 0.55,
		"matches":         0.8, // min(5*0.1, 0.3)
		"metadata":        0.8, // 0.1+0.1 title, 0.05+0.05 tags
		"capped":          1.0,
	}
	for _, r := range rs {
		if math.Abs(r.RelevanceScore-want[r.ID]) > 1e-9 {
			t.Errorf("%s: score = %v, want %v", r.ID, r.RelevanceScore, want[r.ID])
		}
	}
}

func TestSuggest(t *testing.T) {
	q := query.Normalize(query.Query{Text: "neural", Modalities: []content.Type{content.Text, content.Code}}, query.Defaults{})

	mk := func(id, title string, tags []string, matchTypes ...content.Type) result.Result {
		r := result.New(content.Content{ID: id, Type: content.Text, Metadata: content.Metadata{Title: title, Tags: tags}},
			0.5, time.Time{}, nil)
		for _, mt := range matchTypes {
			r.CrossModalMatches = append(r.CrossModalMatches, result.CrossModalMatch{Type: mt})
		}
		return r
	}

	got := suggest([]result.Result{
		mk("a", "Neural network training", []string{"pytorch"}, content.Code),
		mk("b", "Training tricks", []string{"pytorch", "ml"}, content.Code),
	}, q)

	want := []string{
		"neural pytorch",
		"neural training",
		"neural network",
		"neural tricks",
		"neural code",
	}
	if len(got) != len(want) {
		t.Fatalf("suggestions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d = %q, want %q", i, got[i], want[i])
		}
	}

	if s := suggest(nil, q); s != nil {
		t.Errorf("no results should give no suggestions, got %v", s)
	}
}

func TestQueryStats_PopularBoundedByLRU(t *testing.T) {
	s := newQueryStats(2)
	s.record("a", time.Millisecond)
	s.record("a", time.Millisecond)
	s.record("b", 3*time.Millisecond)
	s.record("c", 2*time.Millisecond)

	total, avg, top := s.snapshot()
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
	if avg != 1750*time.Microsecond {
		t.Errorf("avg = %v, want 1.75ms", avg)
	}
	if len(top) != 2 {
		t.Fatalf("top = %+v, want 2 tracked queries", top)
	}
	for _, p := range top {
		if p.Query == "a" {
			t.Errorf("least recently used query should be evicted: %+v", top)
		}
	}
}
