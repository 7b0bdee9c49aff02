package relationship

import (
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

func TestForPair(t *testing.T) {
	tests := []struct {
		src, dst content.Type
		want     Kind
	}{
		{content.Text, content.Code, ImplementationOf},
		{content.Code, content.Text, DocumentationOf},
		{content.Text, content.Image, VisualizationOf},
		{content.Code, content.Image, VisualizationOf},
		{content.Image, content.Text, ExplanationOf},
		{content.Audio, content.Text, ExplanationOf},
		{content.Audio, content.Video, SemanticSimilarity},
		{content.Text, content.Audio, SemanticSimilarity},
	}
	for _, tc := range tests {
		if got := ForPair(tc.src, tc.dst); got != tc.want {
			t.Errorf("ForPair(%s, %s) = %s, want %s", tc.src, tc.dst, got, tc.want)
		}
	}
}

func TestClassify_TagOverrides(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want Kind
	}{
		{"no tags uses table", nil, ImplementationOf},
		{"example", []string{"Example"}, ExampleOf},
		{"demo", []string{"x", "demo"}, ExampleOf},
		{"guide", []string{"guide"}, DocumentationOf},
		{"documentation", []string{"documentation"}, DocumentationOf},
		{"code", []string{"code"}, ImplementationOf},
		{"example beats guide", []string{"guide", "example"}, ExampleOf},
		{"substring does not count", []string{"examples-dir"}, ImplementationOf},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(content.Text, content.Code, tc.tags); got != tc.want {
				t.Errorf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestKind_TextRoundTrip(t *testing.T) {
	for _, k := range AllKinds() {
		b, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		var got Kind
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != k {
			t.Errorf("round trip %s -> %s", k, got)
		}
	}
	if _, err := ParseKind("related_to"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
