// Package pipeline wires capture, preprocessing, recognition, parsing
// and reconciliation into the two run modes: a one-shot analyze over a
// static image and a continuous watch loop over live capture.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/corona10/goimagehash"
	"golang.org/x/sync/errgroup"

	"github.com/croplens/croplens/internal/capture"
	"github.com/croplens/croplens/internal/errors"
	"github.com/croplens/croplens/internal/ocr"
	"github.com/croplens/croplens/internal/parse"
	"github.com/croplens/croplens/internal/preprocess"
	"github.com/croplens/croplens/internal/resilience"
	"github.com/croplens/croplens/internal/roi"
	"github.com/croplens/croplens/internal/state"
	"github.com/croplens/croplens/internal/syncx"
	"github.com/croplens/croplens/internal/trace"
)

// Recognizer is the OCR capability the pipeline depends on.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte, hint ocr.Hint) (ocr.Result, error)
}

// PrepareFunc crops and binarizes one region of a frame.
type PrepareFunc func(frame image.Image, rect image.Rectangle, hints roi.Hints, opts preprocess.Options) ([]byte, error)

// Pipeline configuration constants.
const DefaultWorkers = 4

// Config holds pipeline settings.
type Config struct {
	Workers      int // concurrent ROI recognitions per frame
	SkipDistance int // phash Hamming distance at or under which a frame is skipped; 0 disables
	Reconcile    state.Config
	Preprocess   preprocess.Options
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// Pipeline runs frames through every registered ROI and folds the
// results into game state.
type Pipeline struct {
	reg        *roi.Registry
	grammars   map[string]parse.Grammar
	rec        Recognizer
	prepare    PrepareFunc
	cfg        Config
	breaker    *resilience.Breaker
	reconciler *state.Reconciler
	journal    *state.Journal
	latest     *syncx.RWGuard[state.Snapshot]

	// watch-loop only, no locking needed
	lastHash *goimagehash.ImageHash
}

// New creates a pipeline. A nil prepare falls back to the OpenCV
// preprocessing chain; tests substitute their own.
func New(reg *roi.Registry, grammars map[string]parse.Grammar, rec Recognizer, prepare PrepareFunc, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	if prepare == nil {
		prepare = preprocess.Prepare
	}
	return &Pipeline{
		reg:        reg,
		grammars:   grammars,
		rec:        rec,
		prepare:    prepare,
		cfg:        cfg,
		breaker:    resilience.New(resilience.OCRBreakerConfig()),
		reconciler: state.New(grammars, cfg.Reconcile),
		journal:    state.NewJournal(0),
		latest:     syncx.NewGuard(state.Snapshot{}),
	}
}

// Snapshot returns the most recent confirmed game state.
func (p *Pipeline) Snapshot() state.Snapshot {
	return p.latest.Get()
}

// Events returns the live change event stream.
func (p *Pipeline) Events() <-chan state.Event {
	return p.reconciler.Events()
}

// RecentEvents returns change events from the trailing window.
func (p *Pipeline) RecentEvents(window time.Duration) []state.Event {
	return p.journal.Recent(window)
}

// Close releases the event stream.
func (p *Pipeline) Close() {
	p.reconciler.Close()
}

// Analyze runs one frame through all ROIs and returns the resulting
// state. A single static image needs no debouncing: one valid reading
// per field confirms immediately. Session state is untouched.
func (p *Pipeline) Analyze(ctx context.Context, frame capture.Frame) (state.Snapshot, error) {
	ctx, span := trace.StartSpan(ctx, "analyze")
	defer span.End()

	values, err := p.processFrame(ctx, frame)
	if err != nil {
		return nil, err
	}

	local := state.New(p.grammars, state.Config{
		DebounceFrames: 1,
		HistorySize:    p.cfg.Reconcile.HistorySize,
		OutlierRatio:   p.cfg.Reconcile.OutlierRatio,
	})
	defer local.Close()
	local.Apply(frame.At, values)

	span.SetAttr("fields", len(values))
	trace.Logger(ctx).Debug("analyze complete", "span", span)
	return local.Snapshot(), nil
}

// Watch pulls frames from the source until it ends or ctx is
// cancelled, feeding the session reconciler. Frames visually identical
// to the previous one are skipped before any OCR runs.
func (p *Pipeline) Watch(ctx context.Context, src capture.Source) error {
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			switch {
			case err == capture.ErrEndOfStream:
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.IsFatal(err):
				return err
			default:
				slog.Warn("frame acquisition failed", "error", err)
				continue
			}
		}

		if p.shouldSkip(frame.Img) {
			continue
		}

		values, err := p.processFrame(ctx, frame)
		if err != nil {
			// Cancellation mid-frame: abandon without applying partial results.
			return err
		}

		events := p.reconciler.Apply(frame.At, values)
		p.journal.Add(events...)
		p.latest.Set(p.reconciler.Snapshot())

		for _, ev := range events {
			slog.Info("field changed", "field", ev.Field, "value", ev.New.String())
		}
	}
}

// processFrame runs every ROI concurrently and returns the parsed
// values. Per-ROI failures are routine (hidden HUD elements, OCR
// noise) and yield no value; only cancellation is an error.
func (p *Pipeline) processFrame(ctx context.Context, frame capture.Frame) ([]parse.Value, error) {
	ctx, span := trace.StartSpan(ctx, "frame")
	defer span.End()

	width, height := frame.Resolution()
	defs := p.reg.Definitions()
	results := make([]parse.Value, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, def := range defs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, ok := p.processROI(ctx, frame, def, width, height)
			if ok {
				results[i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := results[:0]
	for _, v := range results {
		if v.Field != "" {
			values = append(values, v)
		}
	}
	span.SetAttr("values", len(values))
	return values, nil
}

func (p *Pipeline) processROI(ctx context.Context, frame capture.Frame, def roi.Definition, width, height int) (parse.Value, bool) {
	log := trace.Logger(ctx)

	rect, err := p.reg.Resolve(def.Name, width, height)
	if err != nil {
		log.Warn("roi resolution failed", "roi", def.Name, "error", err)
		return parse.Value{}, false
	}

	png, err := p.prepare(frame.Img, rect, def.Hints, p.cfg.Preprocess)
	if err != nil {
		if errors.IsCode(err, errors.BlankRegion) {
			log.Debug("roi blank", "roi", def.Name)
		} else {
			log.Debug("preprocess failed", "roi", def.Name, "error", err)
		}
		return parse.Value{}, false
	}

	key := def.Grammar
	if key == "" {
		key = def.Name
	}
	grammar := p.grammars[key]
	res, err := resilience.ExecuteWithResult(p.breaker, func() (ocr.Result, error) {
		return p.rec.Recognize(ctx, png, hintFor(grammar.Kind))
	})
	if err != nil {
		log.Debug("recognition failed", "roi", def.Name, "error", err)
		return parse.Value{}, false
	}

	return parse.Parse(def.Name, res.Text, res.Confidence, grammar), true
}

// hintFor maps a field grammar to the recognizer's alphabet hint.
func hintFor(kind parse.Kind) ocr.Hint {
	switch kind {
	case parse.KindInteger:
		return ocr.HintDigits
	case parse.KindDuration:
		return ocr.HintDuration
	case parse.KindPercent:
		return ocr.HintPercent
	case parse.KindRatio:
		return ocr.HintRatio
	case parse.KindLetters:
		return ocr.HintLetters
	default:
		return ocr.HintFreeText
	}
}

// shouldSkip reports whether the frame is perceptually identical to
// the previous one. A static HUD between game ticks re-reads to the
// same values; skipping saves the whole OCR pass. The hash is too
// coarse to see a single digit tick, so sessions that track fast
// countdown fields run with the skip disabled.
func (p *Pipeline) shouldSkip(img image.Image) bool {
	if p.cfg.SkipDistance <= 0 {
		return false
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}
	if p.lastHash == nil {
		p.lastHash = hash
		return false
	}
	dist, err := p.lastHash.Distance(hash)
	if err != nil {
		p.lastHash = hash
		return false
	}
	if dist <= p.cfg.SkipDistance {
		slog.Debug("skipping similar frame", "distance", dist)
		return true
	}
	p.lastHash = hash
	return false
}
