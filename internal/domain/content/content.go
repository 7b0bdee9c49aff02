package content

import (
	"fmt"
	"strings"
	"time"
)

// Type is a content modality.
type Type string

// Modality constants.
const (
	Text  Type = "text"
	Code  Type = "code"
	Image Type = "image"
	Audio Type = "audio"
	Video Type = "video"
)

// AllTypes lists every modality in declaration order.
func AllTypes() []Type {
	return []Type{Text, Code, Image, Audio, Video}
}

// IsValid checks if the type is one of the supported modalities.
func (t Type) IsValid() bool {
	switch t {
	case Text, Code, Image, Audio, Video:
		return true
	}
	return false
}

// ParseType parses a modality name case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return t, nil
}

// Metadata is the descriptive part of a content item.
// Extra keeps keys the core does not interpret.
type Metadata struct {
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string          `json:"tags" yaml:"tags"`
	Source      string            `json:"source,omitempty" yaml:"source,omitempty"`
	Extra       map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Content is a searchable item. Data is an opaque payload (text body, source code,
// or a media URI) that the core never interprets.
type Content struct {
	ID       string   `json:"id"`
	Type     Type     `json:"type"`
	Data     string   `json:"data,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	c.Metadata = c.Metadata.Clone()
	return c
}

// Embedding is a vectorized content item as stored by the vector collaborator.
type Embedding struct {
	ID        string
	Type      Type
	Vector    []float32
	Metadata  Metadata
	Data      string
	CreatedAt time.Time
}

// Content reconstructs the content item the embedding was produced from.
func (e Embedding) Content() Content {
	return Content{
		ID:       e.ID,
		Type:     e.Type,
		Data:     e.Data,
		Metadata: e.Metadata.Clone(),
	}
}

// Text renders the content as a single string for text embedding models.
func (c Content) Text() string {
	parts := make([]string, 0, 4)
	if c.Metadata.Title != "" {
		parts = append(parts, c.Metadata.Title)
	}
	if c.Metadata.Description != "" {
		parts = append(parts, c.Metadata.Description)
	}
	if len(c.Metadata.Tags) > 0 {
		parts = append(parts, strings.Join(c.Metadata.Tags, " "))
	}
	if c.Data != "" {
		parts = append(parts, c.Data)
	}
	return strings.Join(parts, "\n")
}
