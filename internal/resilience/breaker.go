// Package resilience guards the extraction loop against a failing
// recognizer with a circuit breaker.
package resilience

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the breaker's position. Closed passes calls through, Open
// fails them fast, HalfOpen probes whether the dependency recovered.
type State uint32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned while the breaker is failing fast. The watch loop
// treats it like any per-region recognition failure: the field simply
// gets no update this frame.
var ErrOpen = errors.New("breaker open")

// Breaker fails fast once a dependency has failed repeatedly, so a
// wedged Tesseract degrades a session to stale readings instead of
// stalling every frame on doomed calls. State is atomic; frames
// processing regions in parallel share one breaker without locking.
type Breaker struct {
	cfg         Config
	state       atomic.Uint32
	failures    atomic.Int32
	successes   atomic.Int32
	lastFailure atomic.Int64 // unix nano
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults()}
	b.state.Store(uint32(Closed))
	return b
}

// Allow reports whether a call may proceed. After ResetTimeout an open
// breaker lets callers through half-open to probe the dependency.
func (b *Breaker) Allow() error {
	switch State(b.state.Load()) {
	case Open:
		if b.resetElapsed() {
			b.transition(HalfOpen)
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

// Success records a completed call.
func (b *Breaker) Success() {
	switch State(b.state.Load()) {
	case HalfOpen:
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(Closed)
		}
	case Closed:
		// A success means the dependency is healthy; stale failures
		// must not accumulate toward the threshold across minutes.
		b.failures.Store(0)
	}
}

// Failure records a failed call, opening the breaker at the threshold.
// A half-open probe failing reopens immediately.
func (b *Breaker) Failure() {
	b.lastFailure.Store(time.Now().UnixNano())
	count := b.failures.Add(1)

	switch State(b.state.Load()) {
	case HalfOpen:
		b.transition(Open)
	case Closed:
		if count >= int32(b.cfg.Threshold) {
			b.transition(Open)
		}
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

func (b *Breaker) transition(to State) {
	from := State(b.state.Swap(uint32(to)))
	if from == to {
		return
	}

	switch to {
	case Closed:
		b.failures.Store(0)
		b.successes.Store(0)
		slog.Info("recognizer recovered, breaker closed")
	case Open:
		b.successes.Store(0)
		slog.Warn("breaker opened, failing fast", "failures", b.failures.Load())
	case HalfOpen:
		b.successes.Store(0)
		slog.Info("breaker half-open, probing recognizer")
	}
}

func (b *Breaker) resetElapsed() bool {
	last := b.lastFailure.Load()
	if last == 0 {
		return true
	}
	return time.Since(time.Unix(0, last)) > b.cfg.ResetTimeout
}

// ExecuteWithResult guards one call, recording its outcome.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	result, err := fn()
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return result, nil
}
