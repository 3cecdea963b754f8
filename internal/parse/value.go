package parse

import (
	"fmt"
	"time"
)

// Value is one typed reading of one field. Invalid values carry the
// raw text and confidence for logging but never reach game state.
type Value struct {
	Field      string
	Kind       Kind
	Num        float64       // integer, percent, stage progress, ratio current
	Target     float64       // ratio target side
	Dur        time.Duration // duration fields
	Label      string        // enum match, letters, stage numeral, free text
	Valid      bool
	Confidence float64
	Raw        string
}

// Equal reports whether two values carry the same reading. Confidence
// and raw text are ignored: two frames agreeing on "42" agree even if
// one read it more cleanly.
func (v Value) Equal(o Value) bool {
	if v.Field != o.Field || v.Kind != o.Kind || v.Valid != o.Valid {
		return false
	}
	switch v.Kind {
	case KindDuration:
		return v.Dur == o.Dur
	case KindEnum, KindLetters, KindText:
		return v.Label == o.Label
	case KindStage:
		return v.Label == o.Label && v.Num == o.Num
	case KindRatio:
		return v.Num == o.Num && v.Target == o.Target
	default:
		return v.Num == o.Num
	}
}

// Magnitude returns the value on a single numeric axis, used for
// monotonic step checks and outlier rejection. Non-numeric kinds
// return 0 and are excluded from those checks by the caller.
func (v Value) Magnitude() (float64, bool) {
	switch v.Kind {
	case KindInteger, KindPercent, KindStage:
		return v.Num, true
	case KindRatio:
		return v.Num, true
	case KindDuration:
		return v.Dur.Seconds(), true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	if !v.Valid {
		return fmt.Sprintf("%s: invalid (%q)", v.Field, v.Raw)
	}
	switch v.Kind {
	case KindDuration:
		return fmt.Sprintf("%s: %s", v.Field, v.Dur)
	case KindEnum, KindLetters, KindText:
		return fmt.Sprintf("%s: %s", v.Field, v.Label)
	case KindStage:
		return fmt.Sprintf("%s: %s (%.0f%%)", v.Field, v.Label, v.Num)
	case KindRatio:
		return fmt.Sprintf("%s: %g/%g", v.Field, v.Num, v.Target)
	case KindPercent:
		return fmt.Sprintf("%s: %g%%", v.Field, v.Num)
	default:
		return fmt.Sprintf("%s: %g", v.Field, v.Num)
	}
}
