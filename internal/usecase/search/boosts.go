package search

import (
	"math"
	"strings"

	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

const (
	matchBoostStep     = 0.1
	matchBoostCap      = 0.3
	titleTermBoost     = 0.1
	tagTermBoost       = 0.05
	metadataBoostCap   = 0.3
	firstModalityBump  = 0.1
	secondModalityBump = 0.05
)

// applyBoosts raises each result's score once for cross-modal evidence,
// metadata term overlap and requested-modality position, capped at 1.0.
func applyBoosts(results []result.Result, q query.Query) {
	terms := q.Terms()
	for i := range results {
		r := &results[i]
		boost := crossModalBoost(len(r.CrossModalMatches)) +
			metadataBoost(terms, r) +
			positionBoost(q.ModalityIndex(r.Type))
		r.RelevanceScore = math.Min(r.RelevanceScore+boost, 1.0)
	}
}

func crossModalBoost(n int) float64 {
	return math.Min(float64(n)*matchBoostStep, matchBoostCap)
}

func metadataBoost(terms []string, r *result.Result) float64 {
	title := strings.ToLower(r.Content.Metadata.Title)
	var b float64
	for _, t := range terms {
		if title != "" && strings.Contains(title, t) {
			b += titleTermBoost
		}
		for _, tag := range r.Content.Metadata.Tags {
			if strings.Contains(strings.ToLower(tag), t) {
				b += tagTermBoost
			}
		}
	}
	return math.Min(b, metadataBoostCap)
}

func positionBoost(idx int) float64 {
	switch idx {
	case 0:
		return firstModalityBump
	case 1:
		return secondModalityBump
	}
	return 0
}
