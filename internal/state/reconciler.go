// Package state merges per-frame parsed values into running game
// state. Each field runs a small machine that debounces OCR jitter
// before a reading is trusted, with a fast path for fields that only
// move one way.
package state

import (
	"sort"
	"sync"
	"time"

	"github.com/croplens/croplens/internal/parse"
)

// Phase is a field machine's position.
type Phase int

const (
	Unknown Phase = iota
	Candidate
	Confirmed
)

func (p Phase) String() string {
	return [...]string{"unknown", "candidate", "confirmed"}[p]
}

// Event records an accepted change of one field.
type Event struct {
	Field string
	Prev  parse.Value // zero value on first confirmation
	New   parse.Value
	At    time.Time
}

// FieldSnapshot is one field's last accepted reading.
type FieldSnapshot struct {
	Value      parse.Value
	AcceptedAt time.Time
}

// Snapshot maps field name to its confirmed reading. Fields still in
// Unknown or Candidate never appear.
type Snapshot map[string]FieldSnapshot

// Reconciler configuration constants.
const (
	DefaultDebounceFrames = 2
	DefaultHistorySize    = 8
	DefaultOutlierRatio   = 3.0
	DefaultEventBuffer    = 64
)

// Config holds reconciler settings.
type Config struct {
	DebounceFrames int     // agreeing frames before a value confirms
	HistorySize    int     // rolling magnitudes kept per field
	OutlierRatio   float64 // reject readings this far off the history median
	EventBuffer    int
}

func (c Config) withDefaults() Config {
	if c.DebounceFrames <= 0 {
		c.DebounceFrames = DefaultDebounceFrames
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.OutlierRatio <= 0 {
		c.OutlierRatio = DefaultOutlierRatio
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	return c
}

type fieldState struct {
	phase      Phase
	confirmed  parse.Value
	acceptedAt time.Time
	candidate  parse.Value
	repeats    int
	history    []float64
}

// Reconciler owns game state for one session.
type Reconciler struct {
	mu          sync.Mutex
	cfg         Config
	grammars    map[string]parse.Grammar
	fields      map[string]*fieldState
	lastApplied time.Time
	events      chan Event
	closeOnce   sync.Once
}

// New creates a reconciler for the given field grammars.
func New(grammars map[string]parse.Grammar, cfg Config) *Reconciler {
	cfg = cfg.withDefaults()
	return &Reconciler{
		cfg:      cfg,
		grammars: grammars,
		fields:   make(map[string]*fieldState),
		events:   make(chan Event, cfg.EventBuffer),
	}
}

// Apply merges one frame's parsed values atomically and returns the
// change events it produced, in stable field order. Frames older than
// the last applied frame are ignored so late per-ROI work cannot
// reorder the event stream. Invalid values are discarded without
// touching state.
func (r *Reconciler) Apply(at time.Time, values []parse.Value) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if at.Before(r.lastApplied) {
		return nil
	}
	r.lastApplied = at

	var events []Event
	for _, v := range values {
		if !v.Valid {
			continue
		}
		if ev, ok := r.applyValue(at, v); ok {
			events = append(events, ev)
		}
	}

	for _, ev := range events {
		r.emit(ev)
	}
	return events
}

func (r *Reconciler) applyValue(at time.Time, v parse.Value) (Event, bool) {
	fs, ok := r.fields[v.Field]
	if !ok {
		fs = &fieldState{}
		r.fields[v.Field] = fs
	}
	g := r.grammars[v.Field]

	if m, hasMag := v.Magnitude(); hasMag {
		outlier := r.isOutlier(fs, m)
		// Vetoed readings still enter history. A one-frame glitch barely
		// moves the median, but a genuine large change repeated frame
		// after frame drags the median with it until the veto lifts and
		// the normal debounce takes over.
		fs.history = append(fs.history, m)
		if len(fs.history) > r.cfg.HistorySize {
			fs.history = fs.history[len(fs.history)-r.cfg.HistorySize:]
		}
		if outlier {
			return Event{}, false
		}
	}

	switch fs.phase {
	case Confirmed:
		if v.Equal(fs.confirmed) {
			fs.acceptedAt = at
			fs.candidate = parse.Value{}
			fs.repeats = 0
			return Event{}, false
		}
		if g.Monotonic && r.monotonicStep(fs.confirmed, v, g) {
			// Countdown fields update every frame; waiting out the
			// debounce would lag the display by design.
			return r.confirm(fs, at, v), true
		}
		if v.Equal(fs.candidate) {
			fs.repeats++
		} else {
			fs.candidate = v
			fs.repeats = 1
		}
		if fs.repeats >= r.cfg.DebounceFrames {
			return r.confirm(fs, at, v), true
		}
		return Event{}, false

	case Candidate:
		if v.Equal(fs.candidate) {
			fs.repeats++
		} else {
			// Disagreement is probably noise, not truth. Start over.
			fs.candidate = v
			fs.repeats = 1
		}
		if fs.repeats >= r.cfg.DebounceFrames {
			return r.confirm(fs, at, v), true
		}
		return Event{}, false

	default: // Unknown
		fs.candidate = v
		fs.repeats = 1
		fs.phase = Candidate
		if fs.repeats >= r.cfg.DebounceFrames {
			return r.confirm(fs, at, v), true
		}
		return Event{}, false
	}
}

// confirm installs v as the field's accepted reading.
func (r *Reconciler) confirm(fs *fieldState, at time.Time, v parse.Value) Event {
	ev := Event{Field: v.Field, Prev: fs.confirmed, New: v, At: at}
	fs.phase = Confirmed
	fs.confirmed = v
	fs.acceptedAt = at
	fs.candidate = parse.Value{}
	fs.repeats = 0
	return ev
}

// monotonicStep reports whether v is a plausible single-frame move of
// a monotonically decreasing field such as a countdown timer.
func (r *Reconciler) monotonicStep(prev, next parse.Value, g parse.Grammar) bool {
	pm, ok1 := prev.Magnitude()
	nm, ok2 := next.Magnitude()
	if !ok1 || !ok2 {
		return false
	}
	step := pm - nm
	maxStep := g.MaxStep
	if maxStep <= 0 {
		maxStep = 1
	}
	return step > 0 && step <= maxStep
}

// isOutlier rejects a reading far off the recent median. A misread
// leading digit shifts the value by an order of magnitude for a frame
// or two; a real change that large keeps repeating, and since vetoed
// samples are recorded the veto clears itself within a few frames.
func (r *Reconciler) isOutlier(fs *fieldState, m float64) bool {
	if len(fs.history) < 3 {
		return false
	}
	med := median(fs.history)
	if med <= 0 {
		return false
	}
	return m > med*r.cfg.OutlierRatio || m*r.cfg.OutlierRatio < med
}

func median(samples []float64) float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// Snapshot returns the confirmed game state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make(Snapshot, len(r.fields))
	for name, fs := range r.fields {
		if fs.phase == Confirmed {
			snap[name] = FieldSnapshot{Value: fs.confirmed, AcceptedAt: fs.acceptedAt}
		}
	}
	return snap
}

// Events returns the change event channel.
func (r *Reconciler) Events() <-chan Event {
	return r.events
}

// emit sends an event without blocking; a slow consumer loses events
// rather than stalling frame processing.
func (r *Reconciler) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
	}
}

// Reset clears all field state for a new session.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = make(map[string]*fieldState)
	r.lastApplied = time.Time{}
}

// Close shuts the event channel. Callers must not Apply afterwards.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
	})
}
