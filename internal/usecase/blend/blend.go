// Package blend merges result sets of independently ranked strategies.
package blend

import (
	"math"
	"sort"

	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

// agreementBonus is added once to results produced by more than one strategy.
const agreementBonus = 0.1

// StrategyResults is the ranked output of one strategy.
// A non-positive Weight counts as 1.
type StrategyResults struct {
	Name    string
	Weight  float64
	Results []result.Result
}

// Blend scores each distinct result id as the weight-averaged score over the
// strategies that returned it, plus a flat agreement bonus when more than one did,
// capped at 1.0. The first strategy's copy of a result is kept (it carries its
// cross-modal matches and features).
func Blend(sets []StrategyResults, maxResults int) []result.Result {
	type acc struct {
		res       result.Result
		weighted  float64
		weightSum float64
		seen      int
	}

	merged := make(map[string]*acc)
	order := make([]string, 0)

	for _, set := range sets {
		w := set.Weight
		if w <= 0 {
			w = 1
		}
		for _, r := range set.Results {
			a, ok := merged[r.ID]
			if !ok {
				a = &acc{res: r.Clone()}
				merged[r.ID] = a
				order = append(order, r.ID)
			}
			a.weighted += r.RelevanceScore * w
			a.weightSum += w
			a.seen++
		}
	}

	out := make([]result.Result, 0, len(merged))
	for _, id := range order {
		a := merged[id]
		score := a.weighted / a.weightSum
		if a.seen > 1 {
			score += agreementBonus
		}
		a.res.RelevanceScore = math.Min(score, 1.0)
		out = append(out, a.res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}
