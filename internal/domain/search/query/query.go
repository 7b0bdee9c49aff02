// Package query defines the search query and its normalization rules.
package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/filter"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength   = 4096
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultThreshold = 0.3
)

// Defaults are the values Normalize fills in for absent fields.
type Defaults struct {
	Limit     int
	Threshold float64
}

// Query is a multi-modal search request.
type Query struct {
	Text       string         `json:"query"`
	Modalities []content.Type `json:"modalities"`
	Limit      int            `json:"limit"`
	Threshold  float64        `json:"threshold"`
	Filters    filter.Filters `json:"filters"`
}

// Normalize trims the text and fills defaults. It never fails.
// Duplicate modalities are dropped keeping first occurrence order.
func Normalize(q Query, d Defaults) Query {
	if d.Limit <= 0 {
		d.Limit = DefaultLimit
	}
	if d.Threshold <= 0 {
		d.Threshold = DefaultThreshold
	}

	out := Query{
		Text:      strings.TrimSpace(q.Text),
		Limit:     q.Limit,
		Threshold: q.Threshold,
		Filters:   q.Filters.Clone(),
	}

	seen := make(map[content.Type]struct{}, len(q.Modalities))
	for _, m := range q.Modalities {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out.Modalities = append(out.Modalities, m)
	}
	if len(out.Modalities) == 0 {
		out.Modalities = []content.Type{content.Text}
	}

	if out.Limit <= 0 {
		out.Limit = d.Limit
	}
	if out.Limit > MaxLimit {
		out.Limit = MaxLimit
	}
	if out.Threshold <= 0 {
		out.Threshold = d.Threshold
	}
	return out
}

// IsValid holds iff the text is non-empty and every modality is known.
func IsValid(q Query) bool {
	if strings.TrimSpace(q.Text) == "" || len(q.Modalities) == 0 {
		return false
	}
	for _, m := range q.Modalities {
		if !m.IsValid() {
			return false
		}
	}
	return true
}

// Validate reports why a normalized query cannot be executed.
func Validate(q Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("query is required")
	}
	if len(q.Text) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if len(q.Modalities) == 0 {
		return fmt.Errorf("at least one modality is required")
	}
	for _, m := range q.Modalities {
		if !m.IsValid() {
			return fmt.Errorf("invalid modality %q", m)
		}
	}
	if q.Threshold < 0 || q.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}
	if err := q.Filters.Validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	return nil
}

// ModalityIndex returns the position of t in the requested modalities, or -1.
func (q Query) ModalityIndex(t content.Type) int {
	for i, m := range q.Modalities {
		if m == t {
			return i
		}
	}
	return -1
}

// Terms splits the query text into lowercase whitespace-separated tokens.
func (q Query) Terms() []string {
	return strings.Fields(strings.ToLower(q.Text))
}

// Options tune a single search call. Nil pointers fall back to service config.
type Options struct {
	IncludeCrossModal *bool            `json:"include_cross_modal,omitempty"`
	SemanticExpansion *bool            `json:"semantic_expansion,omitempty"`
	MinScore          *float64         `json:"min_score,omitempty"`
	MaxResults        *int             `json:"max_results,omitempty"`
	WeightProfile     string           `json:"weight_profile,omitempty"`
	Weights           *ranking.Weights `json:"weights,omitempty"`
	DiversityFactor   *float64         `json:"diversity_factor,omitempty"`
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.MinScore != nil && (*o.MinScore < 0 || *o.MinScore > 1) {
		return fmt.Errorf("min_score must be between 0 and 1")
	}
	if o.MaxResults != nil && (*o.MaxResults <= 0 || *o.MaxResults > MaxLimit) {
		return fmt.Errorf("max_results must be between 1 and %d", MaxLimit)
	}
	if o.DiversityFactor != nil && (*o.DiversityFactor < 0 || *o.DiversityFactor > 1) {
		return fmt.Errorf("diversity_factor must be between 0 and 1")
	}
	if o.Weights != nil {
		if err := o.Weights.Validate(); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
	}
	return nil
}

// BoolOr dereferences p or returns def.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// FloatOr dereferences p or returns def.
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// IntOr dereferences p or returns def.
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
