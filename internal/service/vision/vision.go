// Package vision declares the camera-side contracts of the detection loop so
// the loop can run against fakes without OpenCV devices.
package vision

import (
	"errors"
	"image"
)

var (
	// ErrCameraUnavailable is returned when the capture device cannot be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrFrameRead is returned when an opened device stops delivering frames.
	ErrFrameRead = errors.New("failed to read frame")
)

// Frame is one image from the camera. The caller owns it and must Close it.
type Frame interface {
	Size() image.Point
	// JPEG encodes the frame for storage.
	JPEG() ([]byte, error)
	Close() error
}

// Source produces frames on demand.
type Source interface {
	Read() (Frame, error)
	Close() error
}

// Detector finds faces in a frame.
type Detector interface {
	Detect(frame Frame) ([]image.Rectangle, error)
}

// Display renders annotated frames and reports key presses.
type Display interface {
	Show(frame Frame, faces []image.Rectangle) error
	// PollKey waits briefly for a key press; it returns -1 when none arrived.
	PollKey() int
	Close() error
}
