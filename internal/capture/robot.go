package capture

import (
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/croplens/croplens/internal/errors"
)

// robotBackend grabs the primary screen via robotgo. Interchangeable with
// the display backend; some compositors only cooperate with one of the two.
type robotBackend struct{}

func newRobotBackend() Backend { return &robotBackend{} }

func (b *robotBackend) Name() string { return "robotgo" }

func (b *robotBackend) Capture() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, errors.Wrap(err, errors.CaptureFailed, "robotgo capture")
	}
	if img == nil {
		return nil, errors.New(errors.CaptureFailed, "robotgo returned no image")
	}
	return img, nil
}
