package ai

import (
	"errors"
	"fmt"
	"image"
	"os"

	"facewatch/internal/config"
	"facewatch/internal/logger"
	"facewatch/internal/service/vision"

	"gocv.io/x/gocv"
)

// matFrame is implemented by frames backed by an OpenCV matrix.
type matFrame interface {
	Mat() gocv.Mat
}

// FaceDetector runs a Haar cascade over grayscale frames.
type FaceDetector struct {
	classifier   gocv.CascadeClassifier
	cascadePath  string
	scaleFactor  float64
	minNeighbors int
	logger       *logger.Logger
}

// NewFaceDetector loads the cascade file named in the config.
func NewFaceDetector(config *config.Config, logger *logger.Logger) (*FaceDetector, error) {
	if _, err := os.Stat(config.CascadePath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cascade file not found: %s", config.CascadePath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(config.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade file: %s", config.CascadePath)
	}

	logger.Info("Face cascade loaded from %s", config.CascadePath)
	return &FaceDetector{
		classifier:   classifier,
		cascadePath:  config.CascadePath,
		scaleFactor:  config.ScaleFactor,
		minNeighbors: config.MinNeighbors,
		logger:       logger,
	}, nil
}

// Detect converts the frame to grayscale and returns face rectangles.
func (d *FaceDetector) Detect(frame vision.Frame) ([]image.Rectangle, error) {
	f, ok := frame.(matFrame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}

	mat := f.Mat()
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	faces := d.classifier.DetectMultiScaleWithParams(gray, d.scaleFactor, d.minNeighbors, 0, image.Point{}, image.Point{})
	return faces, nil
}

func (d *FaceDetector) Close() error {
	return d.classifier.Close()
}
