package search

import (
	"context"
	"strings"
)

// maxExpansionTerms caps how many synonyms are appended to one query.
const maxExpansionTerms = 5

// Synonyms maps query vocabulary to terms used across modalities.
var Synonyms = map[string][]string{
	"search":         {"find", "lookup", "query", "discover"},
	"find":           {"search", "locate", "lookup"},
	"image":          {"picture", "photo", "diagram", "illustration"},
	"picture":        {"image", "photo"},
	"photo":          {"image", "picture"},
	"diagram":        {"chart", "figure", "image"},
	"video":          {"clip", "recording", "screencast"},
	"audio":          {"sound", "recording", "podcast"},
	"code":           {"implementation", "source", "snippet"},
	"function":       {"func", "method", "procedure"},
	"implementation": {"code", "source"},
	"documentation":  {"docs", "guide", "reference", "manual"},
	"docs":           {"documentation", "guide", "reference"},
	"guide":          {"tutorial", "walkthrough", "howto"},
	"tutorial":       {"guide", "walkthrough", "lesson"},
	"example":        {"sample", "demo", "snippet"},
	"error":          {"exception", "failure", "bug"},
	"bug":            {"defect", "issue", "error"},
	"create":         {"make", "build", "generate"},
	"delete":         {"remove", "drop", "erase"},
	"fast":           {"quick", "performance", "speed"},
	"learning":       {"training", "model"},
	"ml":             {"machine", "learning", "model"},
	"ai":             {"artificial", "intelligence", "model"},
}

// QueryExpander appends synonyms of query terms to the query text.
type QueryExpander struct {
	synonyms map[string][]string
	maxTerms int
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithCustomSynonyms adds custom synonym mappings.
func WithCustomSynonyms(synonyms map[string][]string) QueryExpanderOption {
	return func(e *QueryExpander) {
		for k, v := range synonyms {
			k = strings.ToLower(k)
			e.synonyms[k] = append(e.synonyms[k], v...)
		}
	}
}

// NewQueryExpander creates an expander over the default synonym table.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{
		synonyms: make(map[string][]string, len(Synonyms)),
		maxTerms: maxExpansionTerms,
	}
	for k, v := range Synonyms {
		e.synonyms[k] = append([]string(nil), v...)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the query followed by up to five new synonym terms,
// taken in query-term order.
func (e *QueryExpander) Expand(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return text, err //nolint:wrapcheck // caller falls back to the original text
	}

	terms := strings.Fields(strings.ToLower(text))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[t] = true
	}

	var added []string
	for _, t := range terms {
		for _, syn := range e.synonyms[t] {
			if len(added) >= e.maxTerms {
				break
			}
			ls := strings.ToLower(syn)
			if seen[ls] {
				continue
			}
			seen[ls] = true
			added = append(added, syn)
		}
	}
	if len(added) == 0 {
		return text, nil
	}
	return text + " " + strings.Join(added, " "), nil
}
