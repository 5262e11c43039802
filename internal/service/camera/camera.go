package camera

import (
	"fmt"
	"image"

	"facewatch/internal/logger"
	"facewatch/internal/service/vision"

	"gocv.io/x/gocv"
)

// Frame is a camera image backed by an OpenCV matrix.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Mat exposes the underlying matrix to OpenCV consumers.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

func (f *Frame) Size() image.Point {
	return image.Pt(f.mat.Cols(), f.mat.Rows())
}

// JPEG encodes the frame and copies the result out of native memory.
func (f *Frame) JPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

func (f *Frame) Close() error {
	return f.mat.Close()
}

// Camera wraps a capture device opened by numeric index.
type Camera struct {
	index   int
	capture *gocv.VideoCapture
	logger  *logger.Logger
}

// Open opens the device. Failure is fatal for the detection loop.
func Open(index int, logger *logger.Logger) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", vision.ErrCameraUnavailable, index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d is not opened", vision.ErrCameraUnavailable, index)
	}

	logger.Info("Camera %d opened", index)
	return &Camera{index: index, capture: capture, logger: logger}, nil
}

// Read grabs the next frame.
func (c *Camera) Read() (vision.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: device %d", vision.ErrFrameRead, c.index)
	}
	return NewFrame(mat), nil
}

func (c *Camera) Close() error {
	c.logger.Info("Camera %d released", c.index)
	return c.capture.Close()
}
