package query

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/ranking"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/filter"
)

func TestNormalize_Defaults(t *testing.T) {
	q := Normalize(Query{Text: "  hello  "}, Defaults{})

	if q.Text != "hello" {
		t.Errorf("Text = %q", q.Text)
	}
	if len(q.Modalities) != 1 || q.Modalities[0] != content.Text {
		t.Errorf("Modalities = %v, want [text]", q.Modalities)
	}
	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %f, want %f", q.Threshold, DefaultThreshold)
	}
	if !q.Filters.IsEmpty() {
		t.Errorf("Filters = %+v, want empty", q.Filters)
	}
}

func TestNormalize_ConfigDefaults(t *testing.T) {
	q := Normalize(Query{Text: "x"}, Defaults{Limit: 25, Threshold: 0.5})
	if q.Limit != 25 || q.Threshold != 0.5 {
		t.Errorf("got limit=%d threshold=%f", q.Limit, q.Threshold)
	}
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	in := Query{
		Text:       "go",
		Modalities: []content.Type{content.Code, content.Text, content.Code},
		Limit:      5,
		Threshold:  0.7,
		Filters:    filter.Filters{Source: "repo"},
	}
	q := Normalize(in, Defaults{Limit: 10, Threshold: 0.3})

	if len(q.Modalities) != 2 || q.Modalities[0] != content.Code || q.Modalities[1] != content.Text {
		t.Errorf("Modalities = %v, want [code text]", q.Modalities)
	}
	if q.Limit != 5 || q.Threshold != 0.7 {
		t.Errorf("limit=%d threshold=%f", q.Limit, q.Threshold)
	}
	if q.Filters.Source != "repo" {
		t.Errorf("filters not preserved: %+v", q.Filters)
	}
}

func TestNormalize_ClampsLimit(t *testing.T) {
	q := Normalize(Query{Text: "x", Limit: 1000}, Defaults{})
	if q.Limit != MaxLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, MaxLimit)
	}
}

func TestNormalize_AlwaysValidForNonEmptyText(t *testing.T) {
	inputs := []Query{
		{Text: "a"},
		{Text: " b ", Modalities: []content.Type{content.Video}},
		{Text: "c", Limit: -3, Threshold: -1},
	}
	for _, in := range inputs {
		if q := Normalize(in, Defaults{}); !IsValid(q) {
			t.Errorf("Normalize(%+v) not valid: %+v", in, q)
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"ok", Query{Text: "x", Modalities: []content.Type{content.Text}}, true},
		{"blank text", Query{Text: "   ", Modalities: []content.Type{content.Text}}, false},
		{"no modalities", Query{Text: "x"}, false},
		{"bad modality", Query{Text: "x", Modalities: []content.Type{"pdf"}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValid(tc.q); got != tc.want {
				t.Errorf("IsValid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	base := Normalize(Query{Text: "x"}, Defaults{})

	long := base
	long.Text = strings.Repeat("a", MaxQueryLength+1)
	if err := Validate(long); err == nil {
		t.Error("expected error for long query")
	}

	badThreshold := base
	badThreshold.Threshold = 1.5
	if err := Validate(badThreshold); err == nil {
		t.Error("expected threshold error")
	}

	badFilter := base
	badFilter.Filters = filter.Filters{ContentTypes: []content.Type{"pdf"}}
	if err := Validate(badFilter); err == nil {
		t.Error("expected filter error")
	}

	if err := Validate(base); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestModalityIndexAndTerms(t *testing.T) {
	q := Query{Text: "Machine  Learning", Modalities: []content.Type{content.Text, content.Code}}
	if q.ModalityIndex(content.Code) != 1 {
		t.Errorf("ModalityIndex(code) = %d", q.ModalityIndex(content.Code))
	}
	if q.ModalityIndex(content.Image) != -1 {
		t.Error("unrequested modality should be -1")
	}
	terms := q.Terms()
	if len(terms) != 2 || terms[0] != "machine" || terms[1] != "learning" {
		t.Errorf("Terms() = %v", terms)
	}
}

func TestOptions_Validate(t *testing.T) {
	neg := -0.1
	zero := 0
	bad := ranking.Weights{Semantic: 2}
	cases := []Options{
		{MinScore: &neg},
		{MaxResults: &zero},
		{DiversityFactor: &neg},
		{Weights: &bad},
	}
	for i, o := range cases {
		if err := o.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
	if err := (Options{}).Validate(); err != nil {
		t.Errorf("zero options: %v", err)
	}
}

func TestOrHelpers(t *testing.T) {
	b := false
	f := 0.7
	n := 3
	if BoolOr(nil, true) != true || BoolOr(&b, true) != false {
		t.Error("BoolOr")
	}
	if FloatOr(nil, 0.3) != 0.3 || FloatOr(&f, 0.3) != 0.7 {
		t.Error("FloatOr")
	}
	if IntOr(nil, 10) != 10 || IntOr(&n, 10) != 3 {
		t.Error("IntOr")
	}
}

func TestNormalize_ZeroThresholdTakesDefault(t *testing.T) {
	q := Normalize(Query{Text: "x", Threshold: 0}, Defaults{Limit: 10, Threshold: 0.4})
	if q.Threshold != 0.4 {
		t.Errorf("Threshold = %f, want the configured default 0.4", q.Threshold)
	}
}
