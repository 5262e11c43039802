package model

import "time"

// CaptureStatus tracks a snapshot through the upload pipeline.
type CaptureStatus string

const (
	CaptureStatusPending   CaptureStatus = "pending"
	CaptureStatusUploading CaptureStatus = "uploading"
	CaptureStatusUploaded  CaptureStatus = "uploaded"
	CaptureStatusFailed    CaptureStatus = "failed"
	// CaptureStatusDiscarded marks a failed upload whose local file was deleted anyway.
	CaptureStatusDiscarded CaptureStatus = "discarded"
)

// Capture represents a face snapshot written to the scratch directory.
type Capture struct {
	ID         int64         `json:"id"`
	Filename   string        `json:"filename"`
	FilePath   string        `json:"filepath"`
	FileSize   int64         `json:"filesize"`
	Faces      int           `json:"faces"`
	Status     CaptureStatus `json:"status"`
	RemoteID   string        `json:"remote_id,omitempty"`
	LastError  string        `json:"last_error,omitempty"`
	Attempts   int           `json:"attempts"`
	CreatedAt  time.Time     `json:"created_at"`
	UploadedAt *time.Time    `json:"uploaded_at,omitempty"`
}
