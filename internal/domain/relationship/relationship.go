// Package relationship models typed links between content items of different modalities.
package relationship

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

// Kind is a closed set of cross-modal relationship types.
type Kind int

const (
	// SemanticSimilarity is the fallback when no specific relation applies.
	SemanticSimilarity Kind = iota
	// ImplementationOf links prose to code that implements it.
	ImplementationOf
	// DocumentationOf links code or media to prose that documents it.
	DocumentationOf
	// VisualizationOf links prose or code to an image or video depicting it.
	VisualizationOf
	// ExplanationOf links media to prose that explains it.
	ExplanationOf
	// ExampleOf links an item to a worked example or demo.
	ExampleOf
)

var kindNames = [...]string{
	SemanticSimilarity: "semantic_similarity",
	ImplementationOf:   "implementation_of",
	DocumentationOf:    "documentation_of",
	VisualizationOf:    "visualization_of",
	ExplanationOf:      "explanation_of",
	ExampleOf:          "example_of",
}

// AllKinds lists every relationship kind.
func AllKinds() []Kind {
	return []Kind{SemanticSimilarity, ImplementationOf, DocumentationOf, VisualizationOf, ExplanationOf, ExampleOf}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind parses the wire name of a relationship kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return SemanticSimilarity, fmt.Errorf("unknown relationship kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type pair struct {
	source content.Type
	target content.Type
}

// table is the base relationship for a (source, target) modality pair.
// Pairs not listed resolve to SemanticSimilarity.
var table = map[pair]Kind{
	{content.Text, content.Code}:  ImplementationOf,
	{content.Code, content.Text}:  DocumentationOf,
	{content.Text, content.Image}: VisualizationOf,
	{content.Code, content.Image}: VisualizationOf,
	{content.Text, content.Video}: VisualizationOf,
	{content.Image, content.Text}: ExplanationOf,
	{content.Audio, content.Text}: ExplanationOf,
	{content.Video, content.Text}: ExplanationOf,
	{content.Image, content.Code}: ImplementationOf,
	{content.Video, content.Code}: ImplementationOf,
}

// tag overrides are checked in order; the first hit wins.
var tagOverrides = []struct {
	kind Kind
	tags []string
}{
	{ExampleOf, []string{"example", "demo"}},
	{DocumentationOf, []string{"documentation", "guide"}},
	{ImplementationOf, []string{"implementation", "code"}},
}

// ForPair returns the base relationship for a modality pair.
func ForPair(source, target content.Type) Kind {
	if k, ok := table[pair{source, target}]; ok {
		return k
	}
	return SemanticSimilarity
}

// Classify resolves the relationship between source and target, letting
// the target's tags override the pair table.
func Classify(source, target content.Type, targetTags []string) Kind {
	for _, o := range tagOverrides {
		for _, tag := range targetTags {
			lt := strings.ToLower(tag)
			for _, want := range o.tags {
				if lt == want {
					return o.kind
				}
			}
		}
	}
	return ForPair(source, target)
}

// Record is a cached cross-modal relationship. ContextualRelevance is a
// 0..1 score and CachedAt is the insertion time used for TTL checks.
type Record struct {
	SourceID            string       `json:"source_id"`
	SourceType          content.Type `json:"source_type"`
	TargetID            string       `json:"target_id"`
	TargetType          content.Type `json:"target_type"`
	Kind                Kind         `json:"relationship"`
	Confidence          float64      `json:"confidence"`
	SemanticDistance    float64      `json:"semantic_distance"`
	ContextualRelevance float64      `json:"contextual_relevance"`
	BridgeID            string       `json:"bridge_id,omitempty"`
	CachedAt            time.Time    `json:"cached_at"`
}
