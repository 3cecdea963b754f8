// Package roi defines named, resolution-relative regions of interest.
// Presets store fractional rectangles so one registry serves any capture
// resolution; resolution happens at lookup time against the frame extent.
package roi

import (
	"image"
	"math"

	"github.com/croplens/croplens/internal/errors"
)

// Rel is a fractional rectangle. All coordinates are in [0,1] of the frame.
type Rel struct {
	X float64
	Y float64
	W float64
	H float64
}

// Hints tune per-field preprocessing. Zero value means pipeline defaults.
type Hints struct {
	Invert    bool // light text on dark background
	Otsu      bool // global Otsu threshold instead of adaptive
	MinHeight int  // upscale target height, 0 uses the pipeline default
}

// Definition binds a preset name to its region, field grammar, and hints.
// Immutable once registered.
type Definition struct {
	Name    string
	Rect    Rel
	Grammar string
	Hints   Hints
}

// Registry resolves preset names against capture resolutions.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry validates and indexes the given definitions.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.New(errors.ConfigInvalid, "ROI preset with empty name")
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, errors.Newf(errors.ConfigInvalid, "duplicate ROI preset %q", d.Name)
		}
		if err := validateRect(d.Name, d.Rect); err != nil {
			return nil, err
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

func validateRect(name string, rc Rel) error {
	if rc.W <= 0 || rc.H <= 0 {
		return errors.Newf(errors.ConfigInvalid, "preset %q has non-positive size %.3fx%.3f", name, rc.W, rc.H)
	}
	if rc.X < 0 || rc.Y < 0 || rc.X > 1 || rc.Y > 1 || rc.X+rc.W > 1 || rc.Y+rc.H > 1 {
		return errors.Newf(errors.ConfigInvalid, "preset %q exceeds the unit square", name)
	}
	return nil
}

// Resolve returns the preset's absolute pixel rectangle for a capture of the
// given size, clamped to the frame extent.
func (r *Registry) Resolve(name string, width, height int) (image.Rectangle, error) {
	d, ok := r.defs[name]
	if !ok {
		return image.Rectangle{}, errors.Newf(errors.UnknownPreset, "unknown ROI preset %q", name)
	}
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, errors.Newf(errors.ConfigInvalid, "invalid capture size %dx%d", width, height)
	}

	x0 := round(d.Rect.X * float64(width))
	y0 := round(d.Rect.Y * float64(height))
	x1 := round((d.Rect.X + d.Rect.W) * float64(width))
	y1 := round((d.Rect.Y + d.Rect.H) * float64(height))

	rect := image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, width, height))
	if rect.Empty() {
		return image.Rectangle{}, errors.Newf(errors.ConfigInvalid,
			"preset %q resolves to an empty rectangle at %dx%d", name, width, height)
	}
	return rect, nil
}

// Get returns the definition for a preset name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Definitions returns all presets in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Len returns the number of registered presets.
func (r *Registry) Len() int { return len(r.defs) }

func round(v float64) int {
	return int(math.Round(v))
}
