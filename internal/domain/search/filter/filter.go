package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// MaxTags is the maximum number of tag conditions in a filter.
const MaxTags = 32

// DateRange bounds CreatedAt inclusively. A zero bound is open.
type DateRange struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool { return r.Start.IsZero() && r.End.IsZero() }

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Filters restricts retrieval candidates by their stored metadata.
type Filters struct {
	ContentTypes []content.Type `json:"content_types,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Source       string         `json:"source,omitempty"`
	DateRange    *DateRange     `json:"date_range,omitempty"`
}

// Validate checks filter well-formedness.
func (f Filters) Validate() error {
	for _, t := range f.ContentTypes {
		if !t.IsValid() {
			return fmt.Errorf("invalid content type %q in filter", t)
		}
	}
	if len(f.Tags) > MaxTags {
		return fmt.Errorf("too many tag filters (max %d)", MaxTags)
	}
	if f.DateRange != nil && !f.DateRange.Start.IsZero() && !f.DateRange.End.IsZero() &&
		f.DateRange.End.Before(f.DateRange.Start) {
		return fmt.Errorf("date range end before start")
	}
	return nil
}

// IsEmpty reports whether the filter has no conditions.
func (f Filters) IsEmpty() bool {
	return len(f.ContentTypes) == 0 && len(f.Tags) == 0 && f.Source == "" &&
		(f.DateRange == nil || f.DateRange.IsZero())
}

// Applied lists the names of the active conditions.
func (f Filters) Applied() []string {
	var out []string
	if len(f.ContentTypes) > 0 {
		out = append(out, "content_type")
	}
	if len(f.Tags) > 0 {
		out = append(out, "tags")
	}
	if f.Source != "" {
		out = append(out, "source")
	}
	if f.DateRange != nil && !f.DateRange.IsZero() {
		out = append(out, "date_range")
	}
	return out
}

// Match evaluates every condition against a stored embedding.
// Tags match when ANY filter tag is a case-insensitive substring of ANY content tag.
func (f Filters) Match(e content.Embedding) bool {
	if len(f.ContentTypes) > 0 && !containsType(f.ContentTypes, e.Type) {
		return false
	}
	if len(f.Tags) > 0 && !anyTagMatches(f.Tags, e.Metadata.Tags) {
		return false
	}
	if f.Source != "" && e.Metadata.Source != f.Source {
		return false
	}
	if f.DateRange != nil && !f.DateRange.IsZero() {
		if e.CreatedAt.IsZero() || !f.DateRange.Contains(e.CreatedAt) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := Filters{Source: f.Source}
	if f.ContentTypes != nil {
		out.ContentTypes = append([]content.Type(nil), f.ContentTypes...)
	}
	if f.Tags != nil {
		out.Tags = append([]string(nil), f.Tags...)
	}
	if f.DateRange != nil {
		dr := *f.DateRange
		out.DateRange = &dr
	}
	return out
}

func containsType(types []content.Type, t content.Type) bool {
	for _, ct := range types {
		if ct == t {
			return true
		}
	}
	return false
}

func anyTagMatches(want, have []string) bool {
	for _, w := range want {
		lw := strings.ToLower(w)
		for _, h := range have {
			if strings.Contains(strings.ToLower(h), lw) {
				return true
			}
		}
	}
	return false
}
