package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

const sample = `
contents:
  - id: intro-ml
    type: text
    data: Machine learning fits models to data.
    metadata:
      title: Intro to ML
      tags: [ml, basics]
  - id: sgd-impl
    type: Code
    data: "def sgd(w, g, lr): return w - lr * g"
    metadata:
      title: SGD step
      source: github
      extra:
        lang: python
`

func TestParse(t *testing.T) {
	items, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Type != content.Text || items[0].Metadata.Tags[1] != "basics" {
		t.Errorf("item 0 = %+v", items[0])
	}
	c := items[1]
	if c.Type != content.Code || c.Metadata.Extra["lang"] != "python" || c.Metadata.Source != "github" {
		t.Errorf("item 1 = %+v", c)
	}
	if c.Metadata.Tags == nil {
		t.Error("missing tags should decode as an empty slice")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name, doc string
	}{
		{"unknown type", "contents:\n  - id: a\n    type: smell\n"},
		{"missing id", "contents:\n  - type: text\n"},
		{"duplicate id", "contents:\n  - {id: a, type: text}\n  - {id: a, type: code}\n"},
		{"unknown key", "contents:\n  - {id: a, type: text, colour: red}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	_, err := Parse(strings.NewReader("contents:\n  - id: a\n    type: smell\n"))
	if !errors.Is(err, domain.ErrInvalidContent) {
		t.Errorf("expected ErrInvalidContent, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	items, err := Parse(strings.NewReader(""))
	if err != nil || items != nil {
		t.Errorf("empty document = %v, %v", items, err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	items, err := Load(path)
	if err != nil || len(items) != 2 {
		t.Fatalf("Load = %d items, %v", len(items), err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
