// Package parse converts recognized text into typed field values.
// It is pure string work: no OCR, no image types, no blocking calls.
package parse

// Kind is the shape a field's text is expected to take.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindDuration
	KindPercent
	KindRatio
	KindEnum
	KindLetters
	KindStage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindDuration:
		return "duration"
	case KindPercent:
		return "percent"
	case KindRatio:
		return "ratio"
	case KindEnum:
		return "enum"
	case KindLetters:
		return "letters"
	case KindStage:
		return "stage"
	default:
		return "unknown"
	}
}

// Default grammar tuning.
const (
	DefaultFuzzyCutoff   = 0.70
	DefaultMinConfidence = 0.60
)

// Grammar describes how one field's text maps to a value and which
// readings are plausible. A reading outside [Min, Max] is rejected
// outright: a misread digit usually lands in range, but the bound
// still catches the worst single-frame garbage.
type Grammar struct {
	Kind          Kind
	Min, Max      float64  // plausible numeric range, both zero disables
	MinConfidence float64  // readings below this are rejected
	Monotonic     bool     // field only moves one way (countdown timers)
	MaxStep       float64  // largest plausible per-frame change for monotonic fields
	Vocabulary    []string // enum candidates, longest-prefix then fuzzy
	FuzzyCutoff   float64  // 0..1 similarity floor for enum matching
	Alphabet      string   // permitted runes for letter fields
	Unit          string   // unit glyph stripped before ratio parsing
}

func (g Grammar) withDefaults() Grammar {
	if g.MinConfidence == 0 {
		g.MinConfidence = DefaultMinConfidence
	}
	if g.FuzzyCutoff == 0 {
		g.FuzzyCutoff = DefaultFuzzyCutoff
	}
	return g
}

// hasRange reports whether the grammar bounds numeric readings.
func (g Grammar) hasRange() bool {
	return g.Min != 0 || g.Max != 0
}
