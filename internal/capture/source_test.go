package capture

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/croplens/croplens/internal/errors"
)

type fakeBackend struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Capture() (image.Image, error) {
	f.calls.Add(1)
	if f.fail.Load() {
		return nil, errors.New(errors.CaptureFailed, "grab failed")
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func TestStaticSourceSingleFrame(t *testing.T) {
	frame := Frame{Img: image.NewRGBA(image.Rect(0, 0, 4, 4)), At: time.Now()}
	src := NewStaticSource(frame)
	defer src.Close()

	got, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got.Img != frame.Img {
		t.Error("frame image not passed through")
	}

	if _, err := src.Next(context.Background()); err != ErrEndOfStream {
		t.Errorf("second Next() = %v, want ErrEndOfStream", err)
	}
}

func TestStaticSourceCancelledContext(t *testing.T) {
	src := NewStaticSource(Frame{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Next(ctx); err != context.Canceled {
		t.Errorf("Next() = %v, want context.Canceled", err)
	}
}

func TestLiveSourceDelivers(t *testing.T) {
	backend := &fakeBackend{}
	src := NewLiveSource(backend, 100)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	src.Start(ctx)

	frame, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if frame.Img == nil || frame.At.IsZero() {
		t.Error("frame missing image or timestamp")
	}
}

func TestLiveSourceBoundedLag(t *testing.T) {
	// A consumer far slower than the capture rate must never queue
	// more than the one-slot mailbox.
	backend := &fakeBackend{}
	src := NewLiveSource(backend, 200)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	src.Start(ctx)

	// Let the producer run well ahead of the consumer.
	time.Sleep(300 * time.Millisecond)
	if backend.calls.Load() < 10 {
		t.Skipf("producer too slow on this machine: %d grabs", backend.calls.Load())
	}

	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	// Only the freshest frame was waiting; the next one arrives later.
	second, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !second.At.After(first.At) {
		t.Error("stale frame delivered after drop-oldest")
	}
}

func TestLiveSourceSurfacesFailure(t *testing.T) {
	backend := &fakeBackend{}
	backend.fail.Store(true)
	src := NewLiveSource(backend, 100)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	src.Start(ctx)

	_, err := src.Next(ctx)
	if err == nil {
		t.Fatal("Next() = nil, want capture failure")
	}
	if !errors.IsCode(err, errors.CaptureUnavailable) {
		t.Errorf("Next() = %v, want CaptureUnavailable", err)
	}
}

func TestLiveSourceCloseEndsStream(t *testing.T) {
	backend := &fakeBackend{}
	src := NewLiveSource(backend, 100)

	ctx := context.Background()
	src.Start(ctx)
	src.Close()

	// After stop the loop exits; once the mailbox drains the stream ends.
	deadline := time.After(2 * time.Second)
	for {
		_, err := src.Next(ctx)
		if err == ErrEndOfStream {
			return
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		select {
		case <-deadline:
			t.Fatal("stream never ended after Close")
		default:
		}
	}
}

func TestLiveSourceCloseTwice(t *testing.T) {
	src := NewLiveSource(&fakeBackend{}, 100)
	src.Close()
	src.Close()
}

func TestNewBackendUnknown(t *testing.T) {
	_, err := NewBackend("fancycam", 0)
	if !errors.IsCode(err, errors.ConfigInvalid) {
		t.Errorf("NewBackend() error = %v, want ConfigInvalid", err)
	}
}

func TestDefaultFPS(t *testing.T) {
	src := NewLiveSource(&fakeBackend{}, 0)
	defer src.Close()

	want := time.Duration(float64(time.Second) / DefaultFPS)
	if src.interval != want {
		t.Errorf("interval = %v, want %v", src.interval, want)
	}
}
