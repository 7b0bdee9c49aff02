package crossmodal

import (
	"math"
	"strings"
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

const (
	baseRelevance     = 0.5
	tagWeight         = 0.3
	pathWeight        = 0.2
	temporalWeight    = 0.1
	minRelevance      = 0.3
	temporalHorizon   = 30 * 24 * time.Hour
	bridgeDamping     = 0.8
	bridgeNeighbors   = 5
	bridgeThreshold   = 0.6
	bridgeTargets     = 2
	bridgeTargetFloor = 0.5
)

// contextualRelevance scores how related two items are beyond vector similarity.
func contextualRelevance(src, dst content.Embedding) float64 {
	r := baseRelevance +
		tagWeight*tagOverlap(src.Metadata.Tags, dst.Metadata.Tags) +
		pathWeight*pathOverlap(src.Metadata.Source, dst.Metadata.Source) +
		temporalWeight*temporalDecay(src.CreatedAt, dst.CreatedAt)
	return math.Min(r, 1.0)
}

// tagOverlap is |A ∩ B| / max(|A|, |B|), case-insensitive.
func tagOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[strings.ToLower(t)] = struct{}{}
	}
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		lt := strings.ToLower(t)
		if _, dup := seen[lt]; dup {
			continue
		}
		seen[lt] = struct{}{}
		if _, ok := set[lt]; ok {
			inter++
		}
	}
	return float64(inter) / math.Max(float64(len(set)), float64(len(seen)))
}

// pathOverlap is the shared leading path segments over the longer path.
func pathOverlap(a, b string) float64 {
	sa, sb := segments(a), segments(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	common := 0
	for common < len(sa) && common < len(sb) && sa[common] == sb[common] {
		common++
	}
	return float64(common) / math.Max(float64(len(sa)), float64(len(sb)))
}

func segments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
}

// temporalDecay is 1 for items created at the same time, falling linearly to 0 at 30 days.
func temporalDecay(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return math.Max(0, 1-float64(d)/float64(temporalHorizon))
}
