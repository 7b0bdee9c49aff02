package ranking

import (
	"math"
	"testing"
)

func TestDefaultWeights_SumToOne(t *testing.T) {
	if s := DefaultWeights().Sum(); math.Abs(s-1.0) > 1e-9 {
		t.Errorf("default weights sum = %v, want 1.0", s)
	}
}

func TestDefaultPresets_Valid(t *testing.T) {
	for name, w := range DefaultPresets() {
		if err := w.Validate(); err != nil {
			t.Errorf("preset %q: %v", name, err)
		}
	}
}

func TestWeights_Validate(t *testing.T) {
	bad := DefaultWeights()
	bad.Semantic = 0.9
	if err := bad.Validate(); err == nil {
		t.Error("expected sum error")
	}

	neg := DefaultWeights()
	neg.Semantic = 0.6
	neg.Metadata = -0.1
	if err := neg.Validate(); err == nil {
		t.Error("expected negative weight error")
	}
}

func TestWeights_ApplyCapped(t *testing.T) {
	w := Weights{Semantic: 1, Metadata: 1}
	f := Features{Semantic: 1, Metadata: 1}
	if got := w.Apply(f); got != 1.0 {
		t.Errorf("Apply() = %v, want capped 1.0", got)
	}

	got := DefaultWeights().Apply(Features{Semantic: 0.5})
	if math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Apply() = %v, want 0.2", got)
	}
}

func TestPresets_Resolve(t *testing.T) {
	p := Presets(DefaultPresets())

	w, ok := p.Resolve("")
	if !ok || w != DefaultWeights() {
		t.Errorf("empty name should resolve to default, got %+v ok=%v", w, ok)
	}
	if _, ok := p.Resolve("recent"); !ok {
		t.Error("recent preset missing")
	}
	if _, ok := p.Resolve("nope"); ok {
		t.Error("unknown preset should not resolve")
	}

	empty := Presets{}
	if _, ok := empty.Resolve(ProfileDefault); !ok {
		t.Error("default should always resolve")
	}
}

func TestPresets_Names(t *testing.T) {
	got := Presets(DefaultPresets()).Names()
	want := []string{"default", "popular", "precise", "recent"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
