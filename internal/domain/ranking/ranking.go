// Package ranking defines ranking features and weight profiles.
package ranking

import (
	"fmt"
	"math"
	"sort"
)

// Preset names.
const (
	ProfileDefault = "default"
	ProfileRecent  = "recent"
	ProfilePopular = "popular"
	ProfilePrecise = "precise"
)

// weightSumTolerance bounds how far a profile may drift from 1.0.
const weightSumTolerance = 0.01

// Features are the per-result ranking signals, each in 0..1.
type Features struct {
	Semantic           float64 `json:"semantic_score"`
	ModalityPreference float64 `json:"modality_preference"`
	Freshness          float64 `json:"freshness_score"`
	Popularity         float64 `json:"popularity_score"`
	CrossModal         float64 `json:"cross_modal_score"`
	Metadata           float64 `json:"metadata_score"`
	Final              float64 `json:"final_score"`
}

// Weights are the coefficients applied to each feature.
type Weights struct {
	Semantic   float64 `json:"semantic" yaml:"semantic"`
	Modality   float64 `json:"modality" yaml:"modality"`
	Freshness  float64 `json:"freshness" yaml:"freshness"`
	Popularity float64 `json:"popularity" yaml:"popularity"`
	CrossModal float64 `json:"cross_modal" yaml:"cross_modal"`
	Metadata   float64 `json:"metadata" yaml:"metadata"`
}

// DefaultWeights returns the balanced profile.
func DefaultWeights() Weights {
	return Weights{
		Semantic:   0.40,
		Modality:   0.15,
		Freshness:  0.10,
		Popularity: 0.10,
		CrossModal: 0.15,
		Metadata:   0.10,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Semantic + w.Modality + w.Freshness + w.Popularity + w.CrossModal + w.Metadata
}

// Validate checks that weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Semantic, w.Modality, w.Freshness, w.Popularity, w.CrossModal, w.Metadata} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weights must be non-negative")
		}
	}
	if s := w.Sum(); math.Abs(s-1.0) > weightSumTolerance {
		return fmt.Errorf("weights sum to %.3f, want 1.0", s)
	}
	return nil
}

// Apply returns the weighted sum of f, capped at 1.0.
func (w Weights) Apply(f Features) float64 {
	s := f.Semantic*w.Semantic +
		f.ModalityPreference*w.Modality +
		f.Freshness*w.Freshness +
		f.Popularity*w.Popularity +
		f.CrossModal*w.CrossModal +
		f.Metadata*w.Metadata
	return math.Min(s, 1.0)
}

// DefaultPresets returns the built-in weight profiles.
func DefaultPresets() map[string]Weights {
	return map[string]Weights{
		ProfileDefault: DefaultWeights(),
		ProfileRecent: {
			Semantic: 0.30, Modality: 0.10, Freshness: 0.35,
			Popularity: 0.05, CrossModal: 0.10, Metadata: 0.10,
		},
		ProfilePopular: {
			Semantic: 0.30, Modality: 0.10, Freshness: 0.05,
			Popularity: 0.35, CrossModal: 0.10, Metadata: 0.10,
		},
		ProfilePrecise: {
			Semantic: 0.55, Modality: 0.10, Freshness: 0.05,
			Popularity: 0.00, CrossModal: 0.05, Metadata: 0.25,
		},
	}
}

// Presets is a named set of weight profiles.
type Presets map[string]Weights

// Resolve looks up a profile by name. The empty name resolves to the default profile.
func (p Presets) Resolve(name string) (Weights, bool) {
	if name == "" {
		name = ProfileDefault
	}
	w, ok := p[name]
	if !ok && name == ProfileDefault {
		return DefaultWeights(), true
	}
	return w, ok
}

// Names returns the sorted profile names.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
