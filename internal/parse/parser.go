package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reInteger  = regexp.MustCompile(`-?\d(?:[\d\s.,]*\d)?`)
	reDuration = regexp.MustCompile(`(\d{1,2}):(\d{2})(?::(\d{2}))?`)
	rePercent  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*%`)
	reRatio    = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*/\s*(-?\d+(?:\.\d+)?)`)
	reStage    = regexp.MustCompile(`STAGE\s*([IVXLC]+)\s*\(\s*(\d+)\s*%\s*\)`)
	reNonDigit = regexp.MustCompile(`[^\d-]`)
)

// OCR keeps trading these glyphs for each other on small digit crops.
var digitConfusions = strings.NewReplacer(
	"O", "0",
	"o", "0",
	"l", "1",
	"|", "1",
	"I", "1",
)

// Parse converts recognized text into a typed value under the field's
// grammar. It never returns an error: a mismatch, an out-of-range
// number, or low confidence yields Valid=false, and invalid values are
// an ordinary no-update, not a failure.
func Parse(field, text string, confidence float64, g Grammar) Value {
	g = g.withDefaults()

	v := Value{Field: field, Kind: g.Kind, Confidence: confidence, Raw: text}
	clean := Normalize(text)
	if clean == "" || confidence < g.MinConfidence {
		return v
	}

	switch g.Kind {
	case KindInteger:
		parseInteger(&v, clean)
	case KindDuration:
		parseDuration(&v, clean)
	case KindPercent:
		parsePercent(&v, clean)
	case KindRatio:
		parseRatio(&v, clean, g.Unit)
	case KindEnum:
		parseEnum(&v, clean, g)
	case KindLetters:
		parseLetters(&v, clean, g.Alphabet)
	case KindStage:
		parseStage(&v, clean)
	default:
		v.Label = clean
		v.Valid = true
	}

	if v.Valid && g.hasRange() {
		if m, ok := v.Magnitude(); ok && (m < g.Min || m > g.Max) {
			v.Valid = false
		}
	}
	return v
}

// Normalize folds the text to NFKC, strips line breaks, and collapses
// whitespace runs. OCR output for a single HUD line routinely carries
// stray newlines and compatibility codepoints.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func parseInteger(v *Value, s string) {
	m := reInteger.FindString(digitConfusions.Replace(s))
	if m == "" {
		return
	}
	// Thousands separators: spaces, commas, or dots between digit groups.
	n, err := strconv.ParseInt(reNonDigit.ReplaceAllString(m, ""), 10, 64)
	if err != nil {
		return
	}
	v.Num = float64(n)
	v.Valid = true
}

func parseDuration(v *Value, s string) {
	m := reDuration.FindStringSubmatch(digitConfusions.Replace(s))
	if m == nil {
		return
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second >= 60 {
		return
	}
	if m[3] != "" {
		third, _ := strconv.Atoi(m[3])
		if third >= 60 {
			return
		}
		v.Dur = time.Duration(first)*time.Hour + time.Duration(second)*time.Minute + time.Duration(third)*time.Second
	} else {
		v.Dur = time.Duration(first)*time.Minute + time.Duration(second)*time.Second
	}
	v.Valid = true
}

func parsePercent(v *Value, s string) {
	s = strings.ReplaceAll(digitConfusions.Replace(s), ",", ".")
	m := rePercent.FindStringSubmatch(s)
	if m == nil {
		return
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return
	}
	v.Num = n
	v.Valid = true
}

func parseRatio(v *Value, s string, unit string) {
	s = digitConfusions.Replace(s)
	if unit != "" {
		// The unit may carry a trailing dot in the HUD rendering.
		s = strings.ReplaceAll(s, unit+".", " ")
		s = strings.ReplaceAll(s, unit, " ")
	}
	s = strings.ReplaceAll(s, ",", ".")
	m := reRatio.FindStringSubmatch(s)
	if m == nil {
		return
	}
	cur, err1 := strconv.ParseFloat(m[1], 64)
	target, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return
	}
	v.Num = cur
	v.Target = target
	v.Valid = true
}

// parseEnum matches against the vocabulary by longest prefix first,
// then by edit-distance similarity. HUD labels often trail extra text
// ("TOMATO PLANTED"), so prefix beats exact comparison.
func parseEnum(v *Value, s string, g Grammar) {
	if len(g.Vocabulary) == 0 {
		return
	}
	upper := strings.ToUpper(s)

	best := ""
	for _, candidate := range g.Vocabulary {
		c := strings.ToUpper(candidate)
		if strings.HasPrefix(upper, c) && len(c) > len(best) {
			best = candidate
		}
	}
	if best != "" {
		v.Label = strings.ToUpper(best)
		v.Valid = true
		return
	}

	bestScore := 0.0
	for _, candidate := range g.Vocabulary {
		score := similarity(upper, strings.ToUpper(candidate))
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	if bestScore >= g.FuzzyCutoff {
		v.Label = strings.ToUpper(best)
		v.Valid = true
	}
}

func parseLetters(v *Value, s string, alphabet string) {
	if alphabet == "" {
		alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if strings.ContainsRune(alphabet, r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return
	}
	v.Label = b.String()
	v.Valid = true
}

func parseStage(v *Value, s string) {
	m := reStage.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		// Early growth phases render without a progress percentage.
		v.Label = strings.ToUpper(s)
		v.Valid = v.Label != ""
		return
	}
	percent, _ := strconv.ParseFloat(m[2], 64)
	v.Label = m[1]
	v.Num = percent
	v.Valid = true
}

func similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= longest {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}
