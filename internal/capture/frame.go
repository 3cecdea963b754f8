// Package capture acquires timestamped frames from static images or a live
// screen backend.
package capture

import (
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"time"

	"github.com/croplens/croplens/internal/errors"
)

// Frame is one captured image. Frames are owned by the pipeline run that
// pulled them and are discarded after all regions have been processed.
type Frame struct {
	Img image.Image
	At  time.Time
}

// Resolution returns the frame's pixel dimensions.
func (f Frame) Resolution() (int, int) {
	b := f.Img.Bounds()
	return b.Dx(), b.Dy()
}

// LoadImage decodes a PNG or JPEG screenshot from disk.
func LoadImage(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CaptureUnavailable, "open %s", path)
	}
	defer fh.Close()

	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CaptureFailed, "decode %s", path)
	}
	return img, nil
}
