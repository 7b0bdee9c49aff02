// Package ranking scores search results from weighted ranking features.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	domrank "github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

// Rank computes features for every result, replaces RelevanceScore with the
// weighted final score, and sorts descending. Ties keep retrieval order.
func Rank(results []result.Result, q query.Query, w domrank.Weights) []result.Result {
	for i := range results {
		f := ComputeFeatures(&results[i], q)
		f.Final = w.Apply(f)
		results[i].Features = &f
		results[i].RelevanceScore = f.Final
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results
}

// Explain renders the per-feature contribution to the final score of r.
// Features stored by Rank are reused; unranked results are scored on the fly.
func Explain(r result.Result, q query.Query, w domrank.Weights) string {
	var f domrank.Features
	if r.Features != nil {
		f = *r.Features
	} else {
		f = ComputeFeatures(&r, q)
	}
	final := w.Apply(f)

	rows := []struct {
		name   string
		value  float64
		weight float64
	}{
		{"semantic", f.Semantic, w.Semantic},
		{"modality_preference", f.ModalityPreference, w.Modality},
		{"freshness", f.Freshness, w.Freshness},
		{"popularity", f.Popularity, w.Popularity},
		{"cross_modal", f.CrossModal, w.CrossModal},
		{"metadata", f.Metadata, w.Metadata},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Ranking for %q (%s), query %q\n", r.ID, r.Type, q.Text)
	for _, row := range rows {
		fmt.Fprintf(&b, "  %-20s %.3f x %.2f = %.3f\n", row.name, row.value, row.weight, row.value*row.weight)
	}
	fmt.Fprintf(&b, "  %-20s %.3f\n", "final", final)
	if n := len(r.CrossModalMatches); n > 0 {
		fmt.Fprintf(&b, "  cross-modal matches: %d\n", n)
	}
	return b.String()
}
