package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/croplens/croplens/internal/errors"
	"github.com/croplens/croplens/internal/parse"
	"github.com/croplens/croplens/internal/roi"
)

func TestDefaultPresetsAreComplete(t *testing.T) {
	defs := DefaultPresets()
	grammars := DefaultGrammars(nil)

	want := []string{
		roi.FieldCrop, roi.FieldStatus, roi.FieldStage, roi.FieldGenome,
		roi.FieldTemperature, roi.FieldWater, roi.FieldSoil,
		roi.FieldParasites, roi.FieldGold, roi.FieldHarvestTimer,
	}
	if len(defs) != len(want) {
		t.Fatalf("got %d presets, want %d", len(defs), len(want))
	}

	seen := make(map[string]bool)
	for _, def := range defs {
		if seen[def.Name] {
			t.Errorf("duplicate preset %q", def.Name)
		}
		seen[def.Name] = true

		if _, ok := grammars[def.Name]; !ok {
			t.Errorf("preset %q has no grammar", def.Name)
		}
		if def.Rect.X < 0 || def.Rect.Y < 0 || def.Rect.X+def.Rect.W > 1 || def.Rect.Y+def.Rect.H > 1 {
			t.Errorf("preset %q: rect %+v out of bounds", def.Name, def.Rect)
		}
		if def.Rect.W <= 0 || def.Rect.H <= 0 {
			t.Errorf("preset %q: degenerate rect %+v", def.Name, def.Rect)
		}
	}
	for _, name := range want {
		if !seen[name] {
			t.Errorf("missing preset %q", name)
		}
	}
}

func TestDefaultGrammars(t *testing.T) {
	grammars := DefaultGrammars(nil)

	crop := grammars[roi.FieldCrop]
	if crop.Kind != parse.KindEnum {
		t.Errorf("crop kind = %v, want enum", crop.Kind)
	}
	if !containsStr(crop.Vocabulary, "TOMATO") || !containsStr(crop.Vocabulary, "GRAPE WHITE") {
		t.Errorf("crop vocabulary missing catalogue entries: %v", crop.Vocabulary)
	}

	parasites := grammars[roi.FieldParasites]
	if !containsStr(parasites.Vocabulary, "NONE") {
		t.Error("parasite vocabulary should accept NONE")
	}
	if !containsStr(parasites.Vocabulary, "APHID") {
		t.Errorf("parasite vocabulary missing catalogue pests: %v", parasites.Vocabulary)
	}

	timer := grammars[roi.FieldHarvestTimer]
	if timer.Kind != parse.KindDuration || !timer.Monotonic {
		t.Errorf("harvest timer grammar = %+v, want monotonic duration", timer)
	}

	genome := grammars[roi.FieldGenome]
	if genome.Alphabet != "GWYHX" {
		t.Errorf("genome alphabet = %q, want GWYHX", genome.Alphabet)
	}
}

func TestLoadPresets(t *testing.T) {
	path := writePresets(t, `
[presets.gold]
rect = [0.80, 0.02, 0.15, 0.05]
invert = true

[presets.crop]
rect = [0.02, 0.05, 0.25, 0.04]
otsu = true
min_height = 48
`)

	defs, err := LoadPresets(path, DefaultGrammars(nil))
	if err != nil {
		t.Fatalf("LoadPresets() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("got %d presets, want 2", len(defs))
	}

	// Default ordering puts crop before gold.
	if defs[0].Name != roi.FieldCrop || defs[1].Name != roi.FieldGold {
		t.Errorf("order = [%s %s], want [crop gold]", defs[0].Name, defs[1].Name)
	}
	if defs[1].Rect.X != 0.80 || !defs[1].Hints.Invert {
		t.Errorf("gold preset = %+v", defs[1])
	}
	if !defs[0].Hints.Otsu || defs[0].Hints.MinHeight != 48 {
		t.Errorf("crop hints = %+v", defs[0].Hints)
	}
}

func TestLoadPresetsCustomFieldsSortAfterKnown(t *testing.T) {
	path := writePresets(t, `
[presets.zz_custom]
rect = [0.5, 0.5, 0.1, 0.05]
grammar = "gold"

[presets.aa_custom]
rect = [0.6, 0.5, 0.1, 0.05]
grammar = "gold"

[presets.gold]
rect = [0.80, 0.02, 0.15, 0.05]
`)

	defs, err := LoadPresets(path, DefaultGrammars(nil))
	if err != nil {
		t.Fatalf("LoadPresets() error = %v", err)
	}

	got := []string{defs[0].Name, defs[1].Name, defs[2].Name}
	want := []string{roi.FieldGold, "aa_custom", "zz_custom"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestLoadPresetsGrammarReference(t *testing.T) {
	path := writePresets(t, `
[presets.gold_alt]
rect = [0.1, 0.1, 0.1, 0.05]
grammar = "gold"
`)

	defs, err := LoadPresets(path, DefaultGrammars(nil))
	if err != nil {
		t.Fatalf("LoadPresets() error = %v", err)
	}
	if defs[0].Grammar != "gold" {
		t.Errorf("Grammar = %q, want %q", defs[0].Grammar, "gold")
	}
}

func TestLoadPresetsRejectsUnknownGrammar(t *testing.T) {
	path := writePresets(t, `
[presets.mana]
rect = [0.1, 0.1, 0.1, 0.05]
`)

	_, err := LoadPresets(path, DefaultGrammars(nil))
	if errors.CodeOf(err) != errors.ConfigInvalid {
		t.Errorf("error = %v, want ConfigInvalid", err)
	}
}

func TestLoadPresetsRejectsBadRect(t *testing.T) {
	path := writePresets(t, `
[presets.gold]
rect = [0.1, 0.1]
`)

	_, err := LoadPresets(path, DefaultGrammars(nil))
	if errors.CodeOf(err) != errors.ConfigInvalid {
		t.Errorf("error = %v, want ConfigInvalid", err)
	}
}

func TestLoadPresetsMissingFile(t *testing.T) {
	_, err := LoadPresets(filepath.Join(t.TempDir(), "nope.toml"), DefaultGrammars(nil))
	if errors.CodeOf(err) != errors.ConfigInvalid {
		t.Errorf("error = %v, want ConfigInvalid", err)
	}
}

func writePresets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func containsStr(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
