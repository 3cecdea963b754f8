package config

import (
	"cmp"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/croplens/croplens/internal/errors"
	"github.com/croplens/croplens/internal/knowledge"
	"github.com/croplens/croplens/internal/parse"
	"github.com/croplens/croplens/internal/roi"
)

// DefaultPresets returns the ROI catalogue matching the game's default
// HUD layout at 16:9. The plant panel sits along the left edge, the
// resource strip along the top right.
func DefaultPresets() []roi.Definition {
	return []roi.Definition{
		{Name: roi.FieldCrop, Rect: roi.Rel{X: 0.020, Y: 0.060, W: 0.220, H: 0.040}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldStatus, Rect: roi.Rel{X: 0.020, Y: 0.105, W: 0.220, H: 0.035}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldStage, Rect: roi.Rel{X: 0.020, Y: 0.145, W: 0.200, H: 0.035}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldGenome, Rect: roi.Rel{X: 0.020, Y: 0.185, W: 0.160, H: 0.035}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldTemperature, Rect: roi.Rel{X: 0.020, Y: 0.240, W: 0.180, H: 0.035}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldWater, Rect: roi.Rel{X: 0.020, Y: 0.280, W: 0.180, H: 0.035}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldSoil, Rect: roi.Rel{X: 0.020, Y: 0.320, W: 0.140, H: 0.035}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldParasites, Rect: roi.Rel{X: 0.020, Y: 0.365, W: 0.220, H: 0.040}, Hints: roi.Hints{Invert: true, Otsu: true}},
		{Name: roi.FieldGold, Rect: roi.Rel{X: 0.840, Y: 0.020, W: 0.120, H: 0.040}, Hints: roi.Hints{Invert: true}},
		{Name: roi.FieldHarvestTimer, Rect: roi.Rel{X: 0.840, Y: 0.065, W: 0.100, H: 0.040}, Hints: roi.Hints{Invert: true}},
	}
}

// DefaultGrammars builds the per-field grammar set. The crop and
// parasite vocabularies come from the knowledge catalogue so a custom
// knowledge file extends recognition automatically.
func DefaultGrammars(kb *knowledge.Base) map[string]parse.Grammar {
	if kb == nil {
		kb = knowledge.Default()
	}
	return map[string]parse.Grammar{
		roi.FieldCrop:         {Kind: parse.KindEnum, Vocabulary: kb.CropNames()},
		roi.FieldStatus:       {Kind: parse.KindText},
		roi.FieldStage:        {Kind: parse.KindStage, Min: 0, Max: 100},
		roi.FieldGenome:       {Kind: parse.KindLetters, Alphabet: "GWYHX"},
		roi.FieldTemperature:  {Kind: parse.KindRatio, Min: -50, Max: 60, Unit: "°"},
		roi.FieldWater:        {Kind: parse.KindRatio, Min: 0, Max: 100, Unit: "L"},
		roi.FieldSoil:         {Kind: parse.KindPercent, Min: 0, Max: 100},
		roi.FieldParasites:    {Kind: parse.KindEnum, Vocabulary: append(kb.TargetNames(), "NONE")},
		roi.FieldGold:         {Kind: parse.KindInteger, Min: 0, Max: 100_000_000},
		roi.FieldHarvestTimer: {Kind: parse.KindDuration, Monotonic: true, MaxStep: 2},
	}
}

type filePreset struct {
	Rect      []float64 `toml:"rect"`    // x, y, w, h fractions
	Grammar   string    `toml:"grammar"` // defaults to the preset name
	Invert    bool      `toml:"invert"`
	Otsu      bool      `toml:"otsu"`
	MinHeight int       `toml:"min_height"`
}

type filePresets struct {
	Presets map[string]filePreset `toml:"presets"`
}

// LoadPresets reads an external ROI catalogue. Every preset must name
// a field with a known grammar; a typo here should fail startup, not
// silently produce a dead ROI.
func LoadPresets(path string, grammars map[string]parse.Grammar) ([]roi.Definition, error) {
	var raw filePresets
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ConfigInvalid, "decode presets file").WithMetadata("path", path)
	}
	if len(raw.Presets) == 0 {
		return nil, errors.New(errors.ConfigInvalid, "presets file defines no presets").WithMetadata("path", path)
	}

	// Keep the default ordering for fields the file covers.
	order := make(map[string]int, len(DefaultPresets()))
	for i, def := range DefaultPresets() {
		order[def.Name] = i
	}

	defs := make([]roi.Definition, 0, len(raw.Presets))
	for name, p := range raw.Presets {
		key := p.Grammar
		if key == "" {
			key = name
		}
		if _, ok := grammars[key]; !ok {
			return nil, errors.Newf(errors.ConfigInvalid, "preset %q references unknown grammar %q", name, key)
		}
		if len(p.Rect) != 4 {
			return nil, errors.Newf(errors.ConfigInvalid, "preset %q: rect needs four fractions", name)
		}
		defs = append(defs, roi.Definition{
			Name:    name,
			Rect:    roi.Rel{X: p.Rect[0], Y: p.Rect[1], W: p.Rect[2], H: p.Rect[3]},
			Grammar: p.Grammar,
			Hints: roi.Hints{
				Invert:    p.Invert,
				Otsu:      p.Otsu,
				MinHeight: p.MinHeight,
			},
		})
	}
	// Known fields keep the HUD's visual order; custom ones sort by
	// name after them.
	slices.SortFunc(defs, func(a, b roi.Definition) int {
		ai, aok := order[a.Name]
		bi, bok := order[b.Name]
		switch {
		case aok && bok:
			return cmp.Compare(ai, bi)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return cmp.Compare(a.Name, b.Name)
		}
	})
	return defs, nil
}
