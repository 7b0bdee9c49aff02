// Package diversify reorders ranked results to balance modality representation.
package diversify

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

const (
	titleKeyLen   = 20
	tagKeyCount   = 3
	minCappedKeep = 0.1
)

// Options tune the similar-content cap. A zero MaxSimilarResults disables it.
type Options struct {
	MaxSimilarResults int
}

// Diversify greedily picks, at each step, the remaining result maximizing
// score - selectedCount[type]*factor. Without a cap the output is a permutation
// of the input. Scores are not modified.
func Diversify(results []result.Result, factor float64, opts Options) []result.Result {
	if factor <= 0 || len(results) <= 1 {
		return results
	}

	remaining := make([]result.Result, len(results))
	copy(remaining, results)

	out := make([]result.Result, 0, len(results))
	selected := make(map[content.Type]int)

	for len(remaining) > 0 {
		best := 0
		bestScore := adjusted(remaining[0], selected, factor)
		for i := 1; i < len(remaining); i++ {
			if s := adjusted(remaining[i], selected, factor); s > bestScore {
				best, bestScore = i, s
			}
		}
		pick := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		out = append(out, pick)
		selected[pick.Type]++
	}

	if opts.MaxSimilarResults > 0 {
		out = capSimilar(out, factor, opts.MaxSimilarResults)
	}
	return out
}

func adjusted(r result.Result, selected map[content.Type]int, factor float64) float64 {
	return r.RelevanceScore - float64(selected[r.Type])*factor
}

// capSimilar drops results whose content key already has maxSimilar entries,
// once the key-penalized score falls to 0.1 or below.
func capSimilar(results []result.Result, factor float64, maxSimilar int) []result.Result {
	counts := make(map[string]int)
	out := results[:0:0]
	for _, r := range results {
		key := Key(r)
		n := counts[key]
		if n >= maxSimilar {
			penalized := r.RelevanceScore - float64(n-maxSimilar+1)*factor
			if penalized <= minCappedKeep {
				continue
			}
		}
		counts[key] = n + 1
		out = append(out, r)
	}
	return out
}

// Key derives the near-duplicate identity of a result: type, truncated
// lowercase title, first sorted tags and source.
func Key(r result.Result) string {
	md := r.Content.Metadata
	title := strings.ToLower(strings.TrimSpace(md.Title))
	if len(title) > titleKeyLen {
		title = title[:titleKeyLen]
	}
	tags := make([]string, len(md.Tags))
	for i, t := range md.Tags {
		tags[i] = strings.ToLower(t)
	}
	sort.Strings(tags)
	if len(tags) > tagKeyCount {
		tags = tags[:tagKeyCount]
	}
	return strings.Join([]string{string(r.Type), title, strings.Join(tags, ","), md.Source}, "|")
}
