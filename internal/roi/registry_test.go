package roi

import (
	"image"
	"testing"

	"github.com/croplens/croplens/internal/errors"
)

func testDefs() []Definition {
	return []Definition{
		{Name: "gold", Rect: Rel{X: 0.82, Y: 0.04, W: 0.12, H: 0.05}, Grammar: "gold"},
		{Name: "water", Rect: Rel{X: 0.04, Y: 0.86, W: 0.18, H: 0.05}, Grammar: "water"},
		{Name: "full", Rect: Rel{X: 0, Y: 0, W: 1, H: 1}, Grammar: "text"},
	}
}

func TestResolveContainment(t *testing.T) {
	r, err := NewRegistry(testDefs())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	resolutions := []struct{ w, h int }{
		{1920, 1080}, {1280, 720}, {2560, 1440}, {800, 600}, {333, 177},
	}

	for _, res := range resolutions {
		bounds := image.Rect(0, 0, res.w, res.h)
		for _, d := range r.Definitions() {
			rect, err := r.Resolve(d.Name, res.w, res.h)
			if err != nil {
				t.Fatalf("Resolve(%s, %dx%d): %v", d.Name, res.w, res.h, err)
			}
			if !rect.In(bounds) {
				t.Errorf("Resolve(%s, %dx%d) = %v, not contained in %v", d.Name, res.w, res.h, rect, bounds)
			}
			if rect.Empty() {
				t.Errorf("Resolve(%s, %dx%d) returned empty rectangle", d.Name, res.w, res.h)
			}
		}
	}
}

func TestResolveFullFrame(t *testing.T) {
	r, _ := NewRegistry(testDefs())
	rect, err := r.Resolve("full", 1920, 1080)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rect != image.Rect(0, 0, 1920, 1080) {
		t.Errorf("full-frame preset = %v, want whole frame", rect)
	}
}

func TestResolveUnknownPreset(t *testing.T) {
	r, _ := NewRegistry(testDefs())
	_, err := r.Resolve("nosuch", 1920, 1080)
	if !errors.IsCode(err, errors.UnknownPreset) {
		t.Errorf("expected UnknownPreset, got %v", err)
	}
}

func TestResolveInvalidSize(t *testing.T) {
	r, _ := NewRegistry(testDefs())
	if _, err := r.Resolve("gold", 0, 1080); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"empty name", []Definition{{Name: "", Rect: Rel{W: 0.1, H: 0.1}}}},
		{"duplicate", []Definition{
			{Name: "a", Rect: Rel{W: 0.1, H: 0.1}},
			{Name: "a", Rect: Rel{W: 0.2, H: 0.2}},
		}},
		{"zero size", []Definition{{Name: "a", Rect: Rel{X: 0.5, Y: 0.5}}}},
		{"out of unit square", []Definition{{Name: "a", Rect: Rel{X: 0.9, Y: 0.1, W: 0.2, H: 0.1}}}},
		{"negative origin", []Definition{{Name: "a", Rect: Rel{X: -0.1, Y: 0, W: 0.2, H: 0.1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.defs); !errors.IsCode(err, errors.ConfigInvalid) {
				t.Errorf("expected ConfigInvalid, got %v", err)
			}
		})
	}
}

func TestDefinitionsPreserveOrder(t *testing.T) {
	r, _ := NewRegistry(testDefs())
	defs := r.Definitions()
	want := []string{"gold", "water", "full"}
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("defs[%d].Name = %q, want %q", i, defs[i].Name, name)
		}
	}
}
