package capture

import (
	"context"
	"fmt"
	"image"
)

// FacingMode selects which camera a constraint asks for.
type FacingMode string

const (
	// FacingAny places no constraint on the camera.
	FacingAny FacingMode = ""
	// FacingRear asks for the rear (environment-facing) camera.
	FacingRear FacingMode = "environment"
)

// Constraints describe the camera being requested.
type Constraints struct {
	Facing FacingMode
}

// Stream is a live camera stream. Frame returns the current video frame;
// Close releases the underlying device handle.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// MediaCapture is the camera capability. Implementations are injected so the
// pipeline and session logic never touch device globals directly.
type MediaCapture interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// DeviceErrorKind categorizes camera acquisition failures.
type DeviceErrorKind int

const (
	DeviceNotFound DeviceErrorKind = iota
	DevicePermissionDenied
	DeviceBusy
	DeviceOverconstrained
)

// DeviceError is a categorized camera failure carrying a user-facing message.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera error (%s): %v", e.Message(), e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing description for this failure.
func (e *DeviceError) Message() string {
	switch e.Kind {
	case DeviceNotFound:
		return "No camera found on this device."
	case DevicePermissionDenied:
		return "Camera permission denied. Please enable camera access."
	case DeviceBusy:
		return "Camera is already in use or a hardware error occurred."
	case DeviceOverconstrained:
		return "The requested camera is not available on this device."
	default:
		return "Could not access the camera."
	}
}
