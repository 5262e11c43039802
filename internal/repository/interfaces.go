package repository

import (
	"time"

	"facewatch/internal/dto"
	"facewatch/internal/model"
)

// CaptureRepository defines the interface for capture ledger operations.
type CaptureRepository interface {
	// Create operations
	Insert(c *model.Capture) (int64, error)

	// Read operations
	GetByFilename(filename string) (*model.Capture, error)
	GetAll(filter *dto.CaptureFilters) ([]model.Capture, error)
	GetTotalCount(filter *dto.CaptureFilters) (int, error)
	GetRetryable() ([]model.Capture, error)

	// Update operations
	MarkUploading(id int64) error
	MarkUploaded(id int64, remoteID string, at time.Time) error
	MarkFailed(id int64, status model.CaptureStatus, reason string) error
}

// SignalRepository defines the interface for serial signal history.
type SignalRepository interface {
	Insert(ev *model.SignalEvent) (int64, error)
	GetRecent(limit int) ([]model.SignalEvent, error)
}
