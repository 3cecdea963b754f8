package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clear environment
	envVars := []string{
		"HTTP_ADDR", "CAPTURE_BACKEND", "CAPTURE_DISPLAY", "WATCH_FPS",
		"OCR_LANGUAGES", "OCR_TIMEOUT_SEC", "OCR_POOL", "ROI_WORKERS",
		"DEBOUNCE_FRAMES", "MIN_CONFIDENCE", "MIN_ROI_HEIGHT",
		"BLANK_STDDEV", "SKIP_DISTANCE", "PRESETS_PATH", "KNOWLEDGE_PATH",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	// Check defaults
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.Backend != "display" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "display")
	}
	if cfg.Display != 0 {
		t.Errorf("Display = %d, want 0", cfg.Display)
	}
	if cfg.FPS != 10.0 {
		t.Errorf("FPS = %f, want %f", cfg.FPS, 10.0)
	}
	if len(cfg.Languages) != 1 || cfg.Languages[0] != "eng" {
		t.Errorf("Languages = %v, want [eng]", cfg.Languages)
	}
	if cfg.OCRTimeout != 3*time.Second {
		t.Errorf("OCRTimeout = %v, want %v", cfg.OCRTimeout, 3*time.Second)
	}
	if cfg.OCRPool != 2 {
		t.Errorf("OCRPool = %d, want 2", cfg.OCRPool)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.DebounceFrames != 2 {
		t.Errorf("DebounceFrames = %d, want 2", cfg.DebounceFrames)
	}
	if cfg.MinConfidence != 0.6 {
		t.Errorf("MinConfidence = %f, want %f", cfg.MinConfidence, 0.6)
	}
	if cfg.MinROIHeight != 32 {
		t.Errorf("MinROIHeight = %d, want 32", cfg.MinROIHeight)
	}
	if cfg.BlankStdDev != 6.0 {
		t.Errorf("BlankStdDev = %f, want %f", cfg.BlankStdDev, 6.0)
	}
	if cfg.SkipDistance != 5 {
		t.Errorf("SkipDistance = %d, want 5", cfg.SkipDistance)
	}
	if cfg.PresetsPath != "" {
		t.Errorf("PresetsPath = %q, want empty", cfg.PresetsPath)
	}
}

func TestLoadWithEnv(t *testing.T) {
	os.Setenv("HTTP_ADDR", ":9000")
	os.Setenv("CAPTURE_BACKEND", "robotgo")
	os.Setenv("WATCH_FPS", "4.0")
	os.Setenv("OCR_LANGUAGES", "eng, deu")
	os.Setenv("OCR_TIMEOUT_SEC", "1.5")
	os.Setenv("DEBOUNCE_FRAMES", "3")
	os.Setenv("MIN_CONFIDENCE", "0.75")
	defer func() {
		os.Unsetenv("HTTP_ADDR")
		os.Unsetenv("CAPTURE_BACKEND")
		os.Unsetenv("WATCH_FPS")
		os.Unsetenv("OCR_LANGUAGES")
		os.Unsetenv("OCR_TIMEOUT_SEC")
		os.Unsetenv("DEBOUNCE_FRAMES")
		os.Unsetenv("MIN_CONFIDENCE")
	}()

	cfg := Load()

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.Backend != "robotgo" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "robotgo")
	}
	if cfg.FPS != 4.0 {
		t.Errorf("FPS = %f, want %f", cfg.FPS, 4.0)
	}
	if len(cfg.Languages) != 2 || cfg.Languages[0] != "eng" || cfg.Languages[1] != "deu" {
		t.Errorf("Languages = %v, want [eng deu]", cfg.Languages)
	}
	if cfg.OCRTimeout != 1500*time.Millisecond {
		t.Errorf("OCRTimeout = %v, want %v", cfg.OCRTimeout, 1500*time.Millisecond)
	}
	if cfg.DebounceFrames != 3 {
		t.Errorf("DebounceFrames = %d, want 3", cfg.DebounceFrames)
	}
	if cfg.MinConfidence != 0.75 {
		t.Errorf("MinConfidence = %f, want %f", cfg.MinConfidence, 0.75)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	// Test getEnv
	os.Setenv("TEST_STRING", "hello")
	defer os.Unsetenv("TEST_STRING")
	if v := getEnv("TEST_STRING", "default"); v != "hello" {
		t.Errorf("getEnv = %q, want %q", v, "hello")
	}
	if v := getEnv("NONEXISTENT", "default"); v != "default" {
		t.Errorf("getEnv = %q, want %q", v, "default")
	}

	// Test getEnvInt
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")
	if v := getEnvInt("TEST_INT", 0); v != 42 {
		t.Errorf("getEnvInt = %d, want %d", v, 42)
	}
	if v := getEnvInt("NONEXISTENT", 99); v != 99 {
		t.Errorf("getEnvInt = %d, want %d", v, 99)
	}
	os.Setenv("TEST_INT_INVALID", "not-a-number")
	defer os.Unsetenv("TEST_INT_INVALID")
	if v := getEnvInt("TEST_INT_INVALID", 100); v != 100 {
		t.Errorf("getEnvInt with invalid = %d, want %d", v, 100)
	}

	// Test getEnvFloat
	os.Setenv("TEST_FLOAT", "3.14")
	defer os.Unsetenv("TEST_FLOAT")
	if v := getEnvFloat("TEST_FLOAT", 0.0); v != 3.14 {
		t.Errorf("getEnvFloat = %f, want %f", v, 3.14)
	}
	if v := getEnvFloat("NONEXISTENT", 2.71); v != 2.71 {
		t.Errorf("getEnvFloat = %f, want %f", v, 2.71)
	}

	// Test getEnvList
	os.Setenv("TEST_LIST", "a, b ,,c")
	defer os.Unsetenv("TEST_LIST")
	got := getEnvList("TEST_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("getEnvList = %v, want [a b c]", got)
	}
	def := []string{"x"}
	if v := getEnvList("NONEXISTENT", def); len(v) != 1 || v[0] != "x" {
		t.Errorf("getEnvList default = %v, want [x]", v)
	}
}
