package search

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

const (
	maxSuggestions       = 5
	suggestionSampleSize = 5
	minSuggestionTermLen = 3
)

// suggest builds follow-up queries from the top results: frequent title and
// tag terms the query does not already contain, plus a modality hint for the
// type that shows up most in cross-modal matches.
func suggest(results []result.Result, q query.Query) []string {
	if len(results) == 0 {
		return nil
	}
	sample := results
	if len(sample) > suggestionSampleSize {
		sample = sample[:suggestionSampleSize]
	}

	inQuery := make(map[string]bool)
	for _, t := range q.Terms() {
		inQuery[t] = true
	}

	counts := make(map[string]int)
	typeCounts := make(map[content.Type]int)
	for _, r := range sample {
		for _, w := range splitWords(r.Content.Metadata.Title) {
			counts[w]++
		}
		for _, tag := range r.Content.Metadata.Tags {
			for _, w := range splitWords(tag) {
				counts[w]++
			}
		}
		for _, m := range r.CrossModalMatches {
			typeCounts[m.Type]++
		}
	}

	terms := make([]string, 0, len(counts))
	for w := range counts {
		if len(w) >= minSuggestionTermLen && !inQuery[w] {
			terms = append(terms, w)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	hint := modalityHint(q, typeCounts)
	termSlots := maxSuggestions
	if hint != "" {
		termSlots--
	}
	if len(terms) > termSlots {
		terms = terms[:termSlots]
	}

	out := make([]string, 0, maxSuggestions)
	for _, t := range terms {
		out = append(out, q.Text+" "+t)
	}
	if hint != "" {
		out = append(out, hint)
	}
	return out
}

func modalityHint(q query.Query, typeCounts map[content.Type]int) string {
	var best content.Type
	bestN := 0
	for _, t := range content.AllTypes() {
		if typeCounts[t] > bestN {
			best, bestN = t, typeCounts[t]
		}
	}
	if bestN == 0 || strings.Contains(strings.ToLower(q.Text), string(best)) {
		return ""
	}
	return q.Text + " " + string(best)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
