package capture

import (
	"image"

	"github.com/croplens/croplens/internal/errors"
)

// Backend is the capability a live source needs from a screen grabber.
// Implementations are chosen once at startup by configuration, never by
// runtime type inspection.
type Backend interface {
	Name() string
	Capture() (image.Image, error)
}

// NewBackend selects a capture backend by configured name.
func NewBackend(name string, display int) (Backend, error) {
	switch name {
	case "", "display":
		return newDisplayBackend(display)
	case "robotgo":
		return newRobotBackend(), nil
	default:
		return nil, errors.Newf(errors.ConfigInvalid, "unknown capture backend %q", name)
	}
}
