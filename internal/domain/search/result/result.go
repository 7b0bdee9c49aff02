package result

import (
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/relationship"
)

// CrossModalMatch links a result to related content in another modality.
// BridgeID is set when the match was inferred through an intermediate item.
type CrossModalMatch struct {
	ContentID    string            `json:"content_id"`
	Type         content.Type      `json:"type"`
	Score        float64           `json:"score"`
	Relationship relationship.Kind `json:"relationship"`
	BridgeID     string            `json:"bridge_id,omitempty"`
}

// Metadata is per-result response context.
type Metadata struct {
	AppliedFilters []string      `json:"applied_filters,omitempty"`
	Suggestions    []string      `json:"suggestions,omitempty"`
	SearchTime     time.Duration `json:"search_time"`
}

// Result is a single search hit. RelevanceScore is rewritten by each pipeline stage.
type Result struct {
	ID                string            `json:"id"`
	Content           content.Content   `json:"content"`
	Type              content.Type      `json:"type"`
	RelevanceScore    float64           `json:"relevance_score"`
	CrossModalMatches []CrossModalMatch `json:"cross_modal_matches"`
	Features          *ranking.Features `json:"features,omitempty"`
	Metadata          Metadata          `json:"metadata"`
	CreatedAt         time.Time         `json:"created_at,omitempty"`
	Vector            []float32         `json:"-"`
}

// New creates a result from a retrieved content item.
func New(c content.Content, score float64, createdAt time.Time, vec []float32) Result {
	return Result{
		ID:                c.ID,
		Content:           c,
		Type:              c.Type,
		RelevanceScore:    score,
		CrossModalMatches: []CrossModalMatch{},
		CreatedAt:         createdAt,
		Vector:            vec,
	}
}

// Embedding reconstructs the stored embedding of the result.
func (r *Result) Embedding() content.Embedding {
	return content.Embedding{
		ID:        r.ID,
		Type:      r.Type,
		Vector:    r.Vector,
		Metadata:  r.Content.Metadata,
		Data:      r.Content.Data,
		CreatedAt: r.CreatedAt,
	}
}

// Clone returns a deep copy. The vector is shared because it is never mutated.
func (r Result) Clone() Result {
	out := r
	out.Content = r.Content.Clone()
	out.CrossModalMatches = append([]CrossModalMatch{}, r.CrossModalMatches...)
	if r.Features != nil {
		f := *r.Features
		out.Features = &f
	}
	if r.Metadata.AppliedFilters != nil {
		out.Metadata.AppliedFilters = append([]string(nil), r.Metadata.AppliedFilters...)
	}
	if r.Metadata.Suggestions != nil {
		out.Metadata.Suggestions = append([]string(nil), r.Metadata.Suggestions...)
	}
	return out
}

// CloneAll deep-copies a result slice.
func CloneAll(rs []Result) []Result {
	if rs == nil {
		return nil
	}
	out := make([]Result, len(rs))
	for i := range rs {
		out[i] = rs[i].Clone()
	}
	return out
}

// Analytics summarizes a single search execution.
type Analytics struct {
	QueryTime         time.Duration        `json:"query_time"`
	TotalResults      int                  `json:"total_results"`
	ResultsByModality map[content.Type]int `json:"results_by_modality"`
	AverageScore      float64              `json:"average_score"`
	CrossModalMatches int                  `json:"cross_modal_matches"`
	CacheHit          bool                 `json:"cache_hit"`
}

// Summarize computes analytics over the final result set.
func Summarize(rs []Result, took time.Duration, cacheHit bool) Analytics {
	a := Analytics{
		QueryTime:         took,
		TotalResults:      len(rs),
		ResultsByModality: make(map[content.Type]int),
		CacheHit:          cacheHit,
	}
	var sum float64
	for i := range rs {
		a.ResultsByModality[rs[i].Type]++
		a.CrossModalMatches += len(rs[i].CrossModalMatches)
		sum += rs[i].RelevanceScore
	}
	if len(rs) > 0 {
		a.AverageScore = sum / float64(len(rs))
	}
	return a
}
