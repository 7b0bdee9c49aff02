package ranking

import (
	"math"
	"strings"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	domrank "github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

const (
	defaultFreshness  = 0.5
	basePopularity    = 0.5
	tagPopularityStep = 0.05
	tagPopularityCap  = 0.2
	titlePopularity   = 0.1
	crossModalSatN    = 5.0
)

// freshnessKeywords are matched against source and tags. Order only matters for ties.
var freshnessKeywords = []struct {
	word  string
	score float64
}{
	{"recent", 1.0},
	{"today", 0.9},
	{"week", 0.7},
	{"month", 0.5},
	{"old", 0.2},
}

var typePopularity = map[content.Type]float64{
	content.Code:  0.2,
	content.Video: 0.25,
	content.Image: 0.15,
	content.Text:  0.1,
	content.Audio: 0.05,
}

// ComputeFeatures derives the six ranking signals for r. Final is left zero.
func ComputeFeatures(r *result.Result, q query.Query) domrank.Features {
	return domrank.Features{
		Semantic:           clamp01(r.RelevanceScore),
		ModalityPreference: modalityPreference(r.Type, q),
		Freshness:          freshness(r.Content.Metadata),
		Popularity:         popularity(r.Type, r.Content.Metadata),
		CrossModal:         crossModal(r.CrossModalMatches),
		Metadata:           metadataScore(q.Terms(), r.Content.Metadata),
	}
}

func modalityPreference(t content.Type, q query.Query) float64 {
	idx := q.ModalityIndex(t)
	if idx < 0 {
		return 0
	}
	return 1.0 - (float64(idx)/float64(len(q.Modalities)))*0.5
}

func freshness(m content.Metadata) float64 {
	haystack := make([]string, 0, len(m.Tags)+1)
	if m.Source != "" {
		haystack = append(haystack, strings.ToLower(m.Source))
	}
	for _, t := range m.Tags {
		haystack = append(haystack, strings.ToLower(t))
	}

	best, matched := 0.0, false
	for _, kw := range freshnessKeywords {
		for _, h := range haystack {
			if strings.Contains(h, kw.word) {
				if !matched || kw.score > best {
					best = kw.score
				}
				matched = true
				break
			}
		}
	}
	if !matched {
		return defaultFreshness
	}
	return best
}

func popularity(t content.Type, m content.Metadata) float64 {
	s := basePopularity + typePopularity[t]
	s += math.Min(float64(len(m.Tags))*tagPopularityStep, tagPopularityCap)
	if strings.TrimSpace(m.Title) != "" {
		s += titlePopularity
	}
	return math.Min(s, 1.0)
}

func crossModal(matches []result.CrossModalMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matches {
		sum += m.Score
	}
	avg := sum / float64(len(matches))
	count := math.Min(float64(len(matches))/crossModalSatN, 1.0)
	return clamp01(0.4*count + 0.6*avg)
}

// metadataScore weights term overlap against title, description and tags.
func metadataScore(terms []string, m content.Metadata) float64 {
	if len(terms) == 0 {
		return 0
	}
	s := 0.5*overlap(terms, words(m.Title)) +
		0.3*overlap(terms, words(m.Description)) +
		0.2*overlap(terms, tagWords(m.Tags))
	return math.Min(s, 1.0)
}

// overlap is the share of terms present in set.
func overlap(terms []string, set map[string]struct{}) float64 {
	if len(set) == 0 {
		return 0
	}
	n := 0
	for _, t := range terms {
		if _, ok := set[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(terms))
}

func words(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), isSeparator)
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func tagWords(tags []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		lt := strings.ToLower(t)
		out[lt] = struct{}{}
		for w := range words(lt) {
			out[w] = struct{}{}
		}
	}
	return out
}

func isSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r > 127:
		return false
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
