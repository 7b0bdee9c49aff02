package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/kailas-cloud/modalsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
)

// cacheKeyInput is the canonical form of everything that shapes retrieval output.
// Field order is fixed by the struct, so encoding/json yields a stable serialization.
type cacheKeyInput struct {
	Query        string   `json:"q"`
	Modalities   []string `json:"m"`
	Limit        int      `json:"l"`
	Threshold    float64  `json:"t"`
	ContentTypes []string `json:"ft,omitempty"`
	Tags         []string `json:"fg,omitempty"`
	Source       string   `json:"fs,omitempty"`
	DateStart    int64    `json:"fds,omitempty"`
	DateEnd      int64    `json:"fde,omitempty"`
	CrossModal   bool     `json:"cm"`
	Expansion    bool     `json:"ex"`
	MinScore     float64  `json:"ms"`
	MaxResults   int      `json:"mr"`
}

// resultCacheKey hashes the normalized query and resolved options.
// It reports false when the input cannot be encoded (NaN scores), in which
// case the result is not cached.
func resultCacheKey(q query.Query, o RetrieveOptions) (string, bool) {
	in := cacheKeyInput{
		Query:      q.Text,
		Limit:      q.Limit,
		Threshold:  q.Threshold,
		CrossModal: o.CrossModal,
		Expansion:  o.Expansion,
		MinScore:   o.MinScore,
		MaxResults: o.MaxResults,
	}
	// modality order is kept: it drives the position boost
	for _, m := range q.Modalities {
		in.Modalities = append(in.Modalities, string(m))
	}
	applyFilterKey(&in, q.Filters)

	b, err := json.Marshal(in)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), true
}

func applyFilterKey(in *cacheKeyInput, f filter.Filters) {
	for _, t := range f.ContentTypes {
		in.ContentTypes = append(in.ContentTypes, string(t))
	}
	sort.Strings(in.ContentTypes)
	for _, t := range f.Tags {
		in.Tags = append(in.Tags, strings.ToLower(t))
	}
	sort.Strings(in.Tags)
	in.Source = f.Source
	if f.DateRange != nil {
		if !f.DateRange.Start.IsZero() {
			in.DateStart = f.DateRange.Start.UnixNano()
		}
		if !f.DateRange.End.IsZero() {
			in.DateEnd = f.DateRange.End.UnixNano()
		}
	}
}
