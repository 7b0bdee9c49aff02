// Package corpus reads fixture content sets from YAML files.
package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

type fileDTO struct {
	Contents []itemDTO `yaml:"contents"`
}

type itemDTO struct {
	ID       string           `yaml:"id"`
	Type     string           `yaml:"type"`
	Data     string           `yaml:"data"`
	Metadata content.Metadata `yaml:"metadata"`
}

// Load reads a corpus file.
func Load(path string) ([]content.Content, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	items, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return items, nil
}

// Parse decodes a corpus document. Unknown keys, unknown modalities and
// duplicate ids are rejected.
func Parse(r io.Reader) ([]content.Content, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f fileDTO
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse: %w", err)
	}

	seen := make(map[string]bool, len(f.Contents))
	out := make([]content.Content, 0, len(f.Contents))
	for i, it := range f.Contents {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: id is required: %w", i, domain.ErrInvalidContent)
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("item %d: duplicate id %q: %w", i, it.ID, domain.ErrInvalidContent)
		}
		seen[it.ID] = true

		t, err := content.ParseType(it.Type)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w: %w", it.ID, domain.ErrInvalidContent, err)
		}
		md := it.Metadata
		if md.Tags == nil {
			md.Tags = []string{}
		}
		out = append(out, content.Content{ID: it.ID, Type: t, Data: it.Data, Metadata: md})
	}
	return out, nil
}
