package ai

import (
	"os"
	"path/filepath"
	"testing"

	"facewatch/internal/config"
	"facewatch/internal/logger"
)

func TestNewFaceDetector_MissingCascade(t *testing.T) {
	cfg := &config.Config{CascadePath: filepath.Join(t.TempDir(), "missing.xml")}

	if _, err := NewFaceDetector(cfg, logger.Discard()); err == nil {
		t.Error("Expected error for missing cascade file")
	}
}

func TestNewFaceDetector_InvalidCascade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xml")
	os.WriteFile(path, []byte("<opencv_storage></opencv_storage>"), 0644)

	if _, err := NewFaceDetector(&config.Config{CascadePath: path}, logger.Discard()); err == nil {
		t.Error("Expected error for a file that is not a cascade")
	}
}
