// Package config handles runtime configuration and the built-in ROI
// preset catalogue.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	Backend        string  // capture backend: display or robotgo
	Display        int     // display index for the display backend
	FPS            float64 // watch capture rate
	Languages      []string
	OCRTimeout     time.Duration
	OCRPool        int
	Workers        int // concurrent ROI recognitions per frame
	DebounceFrames int
	MinConfidence  float64
	MinROIHeight   int
	BlankStdDev    float64
	SkipDistance   int // phash distance under which frames are skipped; 0 disables
	PresetsPath    string
	KnowledgePath  string
}

// Load reads configuration from a .env file (if present beside the
// working directory) and the environment, environment winning.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		Backend:        getEnv("CAPTURE_BACKEND", "display"),
		Display:        getEnvInt("CAPTURE_DISPLAY", 0),
		FPS:            getEnvFloat("WATCH_FPS", 10.0),
		Languages:      getEnvList("OCR_LANGUAGES", []string{"eng"}),
		OCRTimeout:     time.Duration(getEnvFloat("OCR_TIMEOUT_SEC", 3.0) * float64(time.Second)),
		OCRPool:        getEnvInt("OCR_POOL", 2),
		Workers:        getEnvInt("ROI_WORKERS", 4),
		DebounceFrames: getEnvInt("DEBOUNCE_FRAMES", 2),
		MinConfidence:  getEnvFloat("MIN_CONFIDENCE", 0.6),
		MinROIHeight:   getEnvInt("MIN_ROI_HEIGHT", 32),
		BlankStdDev:    getEnvFloat("BLANK_STDDEV", 6.0),
		SkipDistance:   getEnvInt("SKIP_DISTANCE", 5),
		PresetsPath:    getEnv("PRESETS_PATH", ""),
		KnowledgePath:  getEnv("KNOWLEDGE_PATH", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
