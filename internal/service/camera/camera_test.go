package camera

import (
	"bytes"
	"errors"
	"testing"

	"facewatch/internal/logger"
	"facewatch/internal/service/vision"

	"gocv.io/x/gocv"
)

func TestFrame_SizeAndJPEG(t *testing.T) {
	f := NewFrame(gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3))
	defer f.Close()

	if size := f.Size(); size.X != 64 || size.Y != 48 {
		t.Errorf("Expected 64x48, got %v", size)
	}

	data, err := f.JPEG()
	if err != nil {
		t.Fatalf("JPEG failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Errorf("Expected JPEG header, got % x", data[:2])
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	if _, err := Open(99, logger.Discard()); !errors.Is(err, vision.ErrCameraUnavailable) {
		t.Errorf("Expected ErrCameraUnavailable, got %v", err)
	}
}
