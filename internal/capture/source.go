package capture

import (
	"context"
	stderrors "errors"
	"sync"
)

// ErrEndOfStream signals that a source has no more frames. Static sources
// return it after their single frame; live sources after Close.
var ErrEndOfStream = stderrors.New("capture: end of stream")

// Source produces frames until the stream ends or the context is cancelled.
// Sources are not restartable.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// StaticSource wraps a single loaded image and produces exactly one frame.
type StaticSource struct {
	mu    sync.Mutex
	frame Frame
	done  bool
}

// NewStaticSource creates a source that yields img once, stamped now.
func NewStaticSource(frame Frame) *StaticSource {
	return &StaticSource{frame: frame}
}

// Next returns the wrapped frame on the first call and ErrEndOfStream after.
func (s *StaticSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Frame{}, ErrEndOfStream
	}
	s.done = true
	return s.frame, nil
}

// Close marks the source exhausted.
func (s *StaticSource) Close() error {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
	return nil
}
