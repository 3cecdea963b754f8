// Package ocr wraps Tesseract behind a pooled engine. Clients are not
// goroutine-safe, so the engine hands them out through a channel and
// callers never touch gosseract directly.
package ocr

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/otiai10/gosseract/v2"

	"github.com/croplens/croplens/internal/errors"
)

// Hint narrows the character set Tesseract considers for a region.
// Restricting the alphabet is the single biggest accuracy win on
// small HUD crops.
type Hint int

const (
	HintFreeText Hint = iota
	HintDigits
	HintDuration
	HintPercent
	HintRatio
	HintLetters
)

func (h Hint) allowlist() string {
	switch h {
	case HintDigits:
		return "0123456789.,- "
	case HintDuration:
		return "0123456789:"
	case HintPercent:
		return "0123456789.,%"
	case HintRatio:
		return "0123456789.,/ "
	case HintLetters:
		return "ABCDEFGHIJKLMNOPQRSTUVWXYZ "
	default:
		return ""
	}
}

// Result is one recognition of one region.
type Result struct {
	Text       string
	Confidence float64 // 0..1
	Latency    time.Duration
}

// Engine configuration constants.
const (
	DefaultPoolSize = 2
	DefaultTimeout  = 3 * time.Second
)

// Config holds engine settings.
type Config struct {
	Languages   []string // tried in order for free-text regions
	PageSegMode gosseract.PageSegMode
	Timeout     time.Duration
	Pool        int
}

func (c Config) withDefaults() Config {
	if len(c.Languages) == 0 {
		c.Languages = []string{"eng"}
	}
	if c.PageSegMode == 0 {
		c.PageSegMode = gosseract.PSM_SINGLE_LINE
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Pool <= 0 {
		c.Pool = DefaultPoolSize
	}
	return c
}

// Engine owns a pool of Tesseract clients.
type Engine struct {
	cfg       Config
	clients   chan *gosseract.Client
	closeOnce sync.Once
}

// New initializes the client pool. Fails fast when the Tesseract data
// files for a configured language are missing.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	e := &Engine{
		cfg:     cfg,
		clients: make(chan *gosseract.Client, cfg.Pool),
	}
	for i := 0; i < cfg.Pool; i++ {
		client := gosseract.NewClient()
		if err := client.SetLanguage(cfg.Languages...); err != nil {
			client.Close()
			e.Close()
			return nil, errors.Wrap(err, errors.OCRInitFailed, "set languages").
				WithMetadata("languages", strings.Join(cfg.Languages, "+"))
		}
		if err := client.SetPageSegMode(cfg.PageSegMode); err != nil {
			client.Close()
			e.Close()
			return nil, errors.Wrap(err, errors.OCRInitFailed, "set page segmentation mode")
		}
		e.clients <- client
	}
	return e, nil
}

// Close tears down every pooled client. Safe to call more than once,
// but not concurrently with Recognize.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.clients)
		for client := range e.clients {
			client.Close()
		}
	})
	return nil
}

// Recognize runs Tesseract over a preprocessed PNG crop. The hint
// restricts the alphabet; HintFreeText tries each configured language
// and keeps the most confident reading.
func (e *Engine) Recognize(ctx context.Context, png []byte, hint Hint) (Result, error) {
	start := time.Now()

	var client *gosseract.Client
	select {
	case client = <-e.clients:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		// The goroutine owns the client until the call finishes, even
		// if the caller has already given up.
		res, err := e.recognize(client, png, hint)
		e.clients <- client
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		out.res.Latency = time.Since(start)
		return out.res, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(e.cfg.Timeout):
		return Result{}, errors.New(errors.OCRTimeout, "recognition exceeded timeout").
			WithMetadata("timeout", e.cfg.Timeout.String())
	}
}

func (e *Engine) recognize(client *gosseract.Client, png []byte, hint Hint) (Result, error) {
	if hint == HintFreeText {
		return e.recognizeFreeText(client, png)
	}

	if err := client.SetWhitelist(hint.allowlist()); err != nil {
		return Result{}, errors.Wrap(err, errors.OCRExtractFailed, "set whitelist")
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return Result{}, errors.Wrap(err, errors.OCRExtractFailed, "set image")
	}
	text, err := client.Text()
	if err != nil {
		return Result{}, errors.Wrap(err, errors.OCRExtractFailed, "extract text")
	}
	text = collapse(text)

	conf, ok := wordConfidence(client)
	if !ok {
		// No word boxes means Tesseract gave no native confidence for
		// this crop. Re-run without the whitelist and score by how much
		// the two readings agree.
		conf = e.agreementConfidence(client, png, text)
	}
	return Result{Text: text, Confidence: conf}, nil
}

// recognizeFreeText tries each language in priority order and keeps
// the most confident result. Crop names and parasite labels switch
// language with the game localization.
func (e *Engine) recognizeFreeText(client *gosseract.Client, png []byte) (Result, error) {
	if err := client.SetWhitelist(""); err != nil {
		return Result{}, errors.Wrap(err, errors.OCRExtractFailed, "clear whitelist")
	}

	var best Result
	var lastErr error
	for _, lang := range e.cfg.Languages {
		if err := client.SetLanguage(lang); err != nil {
			lastErr = errors.Wrap(err, errors.OCRExtractFailed, "set language").WithMetadata("language", lang)
			continue
		}
		if err := client.SetImageFromBytes(png); err != nil {
			lastErr = errors.Wrap(err, errors.OCRExtractFailed, "set image")
			continue
		}
		text, err := client.Text()
		if err != nil {
			lastErr = errors.Wrap(err, errors.OCRExtractFailed, "extract text")
			continue
		}
		text = collapse(text)
		conf, ok := wordConfidence(client)
		if !ok {
			conf = 0
		}
		if text != "" && conf >= best.Confidence {
			best = Result{Text: text, Confidence: conf}
		}
	}

	// Restore the pooled client's full language set for the next caller.
	if err := client.SetLanguage(e.cfg.Languages...); err != nil && lastErr == nil {
		lastErr = errors.Wrap(err, errors.OCRExtractFailed, "restore languages")
	}

	if best.Text == "" && lastErr != nil {
		return Result{}, lastErr
	}
	return best, nil
}

// wordConfidence averages Tesseract's per-word confidence, scaled to 0..1.
func wordConfidence(client *gosseract.Client) (float64, bool) {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, false
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes)) / 100.0, true
}

// agreementConfidence re-reads the crop without an alphabet restriction
// and scores the restricted reading by edit-distance similarity. Two
// passes agreeing on a short numeric string is strong evidence both
// read it correctly.
func (e *Engine) agreementConfidence(client *gosseract.Client, png []byte, restricted string) float64 {
	if restricted == "" {
		return 0
	}
	if err := client.SetWhitelist(""); err != nil {
		return 0
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return 0
	}
	unrestricted, err := client.Text()
	if err != nil {
		return 0
	}
	return Agreement(restricted, collapse(unrestricted))
}

// Agreement returns 0..1 similarity between two readings of the same crop.
func Agreement(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	if dist >= longest {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

// collapse trims and folds internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
