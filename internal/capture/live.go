package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/croplens/croplens/internal/errors"
	"github.com/croplens/croplens/internal/resilience"
)

const DefaultFPS = 10.0

// LiveSource paces a capture backend to a target frame rate. The mailbox
// holds at most one frame: a fresh grab replaces any frame the consumer has
// not taken yet, so a slow consumer sheds the oldest frame instead of
// queueing unboundedly.
type LiveSource struct {
	backend  Backend
	interval time.Duration
	retry    resilience.RetryConfig

	frames    chan Frame
	errCh     chan error
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLiveSource creates a live source paced to fps.
func NewLiveSource(backend Backend, fps float64) *LiveSource {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &LiveSource{
		backend:  backend,
		interval: time.Duration(float64(time.Second) / fps),
		retry:    resilience.CaptureRetryConfig(),
		frames:   make(chan Frame, 1),
		errCh:    make(chan error, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the capture loop. Call once.
func (s *LiveSource) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *LiveSource) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			var img Frame
			err := resilience.Retry(ctx, s.retry, func() error {
				grabbed, gerr := s.backend.Capture()
				if gerr != nil {
					return gerr
				}
				img = Frame{Img: grabbed, At: time.Now()}
				return nil
			})
			if err != nil {
				slog.Error("capture failed after retries", "backend", s.backend.Name(), "error", err)
				select {
				case s.errCh <- errors.Wrap(err, errors.CaptureUnavailable, "capture retries exhausted"):
				default:
				}
				return
			}
			s.publish(img)
		}
	}
}

// publish replaces any undelivered frame with the fresh one.
func (s *LiveSource) publish(f Frame) {
	select {
	case s.frames <- f:
		return
	default:
	}
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- f:
	default:
	}
}

// Next blocks until a frame is available, the source fails, or ctx ends.
func (s *LiveSource) Next(ctx context.Context) (Frame, error) {
	// A buffered failure beats a stale frame or the end-of-stream race.
	select {
	case err := <-s.errCh:
		return Frame{}, err
	default:
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case err := <-s.errCh:
		return Frame{}, err
	case f := <-s.frames:
		return f, nil
	case <-s.done:
		return Frame{}, ErrEndOfStream
	}
}

// Close stops the capture loop. Safe to call more than once.
func (s *LiveSource) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}
