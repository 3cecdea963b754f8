package capture

import (
	"image"

	"github.com/kbinani/screenshot"

	"github.com/croplens/croplens/internal/errors"
)

// displayBackend grabs a whole display via the screenshot library.
type displayBackend struct {
	display int
}

func newDisplayBackend(display int) (Backend, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, errors.New(errors.CaptureUnavailable, "no active displays")
	}
	if display < 0 || display >= n {
		return nil, errors.Newf(errors.CaptureUnavailable, "display %d not present (%d active)", display, n)
	}
	return &displayBackend{display: display}, nil
}

func (b *displayBackend) Name() string { return "display" }

func (b *displayBackend) Capture() (image.Image, error) {
	img, err := screenshot.CaptureDisplay(b.display)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CaptureFailed, "capture display %d", b.display)
	}
	return img, nil
}
