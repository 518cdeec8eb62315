package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
)

// Mode is the active input mode of a capture session.
type Mode int

const (
	ModeUpload Mode = iota
	ModeCamera
)

func (m Mode) String() string {
	if m == ModeCamera {
		return "camera"
	}
	return "upload"
}

// Session owns the image-intake state machine. Exactly one mode's resources
// are live at a time: leaving camera mode always releases the stream, and the
// release happens synchronously with the transition.
type Session struct {
	device   MediaCapture
	maxBytes int64

	mode    Mode
	stream  Stream
	pending *Image
}

// NewSession creates a session in upload mode.
func NewSession(device MediaCapture, maxBytes int64) *Session {
	return &Session{device: device, maxBytes: maxBytes, mode: ModeUpload}
}

// Mode reports the active input mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Pending returns the currently selected or captured image, if any.
func (s *Session) Pending() *Image {
	return s.pending
}

// Clear discards the pending image.
func (s *Session) Clear() {
	s.pending = nil
}

// releaseStream closes and detaches any live stream. Safe to call in any mode.
func (s *Session) releaseStream() {
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
}

// UseUpload switches to upload mode, releasing any live camera stream and
// discarding the pending image.
func (s *Session) UseUpload() {
	s.releaseStream()
	s.pending = nil
	s.mode = ModeUpload
}

// UseCamera switches to camera mode. The rear-facing camera is requested
// first; if that specific constraint cannot be satisfied, a single
// unconstrained request is attempted before giving up. Any other device
// failure reverts the session to upload mode and is returned to the caller.
func (s *Session) UseCamera(ctx context.Context) error {
	s.releaseStream()
	s.pending = nil

	stream, err := s.device.Open(ctx, Constraints{Facing: FacingRear})
	if err != nil {
		var devErr *DeviceError
		if errors.As(err, &devErr) && devErr.Kind == DeviceOverconstrained {
			stream, err = s.device.Open(ctx, Constraints{Facing: FacingAny})
		}
	}
	if err != nil {
		s.mode = ModeUpload
		return err
	}

	s.stream = stream
	s.mode = ModeCamera
	return nil
}

// Snapshot grabs the current frame from the live stream and encodes it as a
// JPEG still. The stream stays open so the user can retake.
func (s *Session) Snapshot(ctx context.Context) (*Image, error) {
	if s.mode != ModeCamera || s.stream == nil {
		return nil, errors.New("no active camera stream")
	}

	frame, err := s.stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to grab frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, nil); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	img := &Image{MIMEType: "image/jpeg", Data: buf.Bytes()}
	s.pending = img
	return img, nil
}

// SetFile validates an uploaded file and makes it the pending image. The
// session switches to upload mode first, releasing any camera stream. On
// rejection the previous selection is cleared, never kept.
func (s *Session) SetFile(r io.Reader) (*Image, error) {
	s.releaseStream()
	s.mode = ModeUpload

	img, err := ReadImage(r, s.maxBytes)
	if err != nil {
		s.pending = nil
		return nil, err
	}
	s.pending = &img
	return &img, nil
}
