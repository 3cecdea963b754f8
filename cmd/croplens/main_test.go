package main

import (
	"flag"
	"testing"

	"github.com/croplens/croplens/internal/config"
)

func TestROIFlag(t *testing.T) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cfg := &config.Config{PresetsPath: "presets.toml"}
	got := roiFlag(fs, cfg)

	if err := fs.Parse([]string{"-roi", "custom.toml"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if *got != "custom.toml" {
		t.Errorf("roi = %q, want custom.toml", *got)
	}
}

func TestROIFlagDefaultsToConfig(t *testing.T) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfg := &config.Config{PresetsPath: "from-env.toml"}
	got := roiFlag(fs, cfg)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if *got != "from-env.toml" {
		t.Errorf("roi = %q, want from-env.toml", *got)
	}
}
