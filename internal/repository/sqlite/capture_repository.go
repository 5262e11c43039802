package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"facewatch/internal/dto"
	"facewatch/internal/model"
)

const captureColumns = `id, filename, filepath, filesize, faces, status, remote_id, last_error, attempts, created_at, uploaded_at`

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

// Insert adds a new capture record to the ledger.
func (r *CaptureRepository) Insert(c *model.Capture) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	status := c.Status
	if status == "" {
		status = model.CaptureStatusPending
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (filename, filepath, filesize, faces, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Filename, c.FilePath, c.FileSize, c.Faces, string(status), c.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	return result.LastInsertId()
}

// GetByFilename retrieves a capture by its filename.
func (r *CaptureRepository) GetByFilename(filename string) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+captureColumns+` FROM captures WHERE filename = ?`, filename)
	c, err := scanCapture(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return c, nil
}

// GetAll retrieves captures based on filter criteria, newest first.
func (r *CaptureRepository) GetAll(filter *dto.CaptureFilters) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := captureWhere(filter)
	query := `SELECT ` + captureColumns + ` FROM captures` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	return scanCaptures(rows)
}

// GetTotalCount returns the total count of captures matching the filter.
func (r *CaptureRepository) GetTotalCount(filter *dto.CaptureFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := captureWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return count, nil
}

// GetRetryable returns captures that still have a local file awaiting upload, oldest first.
func (r *CaptureRepository) GetRetryable() ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT `+captureColumns+` FROM captures
		WHERE status IN (?, ?, ?)
		ORDER BY created_at ASC, id ASC
	`, string(model.CaptureStatusPending), string(model.CaptureStatusFailed), string(model.CaptureStatusUploading))
	if err != nil {
		return nil, fmt.Errorf("failed to query retryable captures: %w", err)
	}
	defer rows.Close()

	return scanCaptures(rows)
}

// MarkUploading records the start of an upload attempt.
func (r *CaptureRepository) MarkUploading(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		UPDATE captures SET status = ?, attempts = attempts + 1 WHERE id = ?
	`, string(model.CaptureStatusUploading), id); err != nil {
		return fmt.Errorf("failed to mark capture uploading: %w", err)
	}
	return nil
}

// MarkUploaded records a successful upload.
func (r *CaptureRepository) MarkUploaded(id int64, remoteID string, at time.Time) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		UPDATE captures SET status = ?, remote_id = ?, last_error = '', uploaded_at = ? WHERE id = ?
	`, string(model.CaptureStatusUploaded), remoteID, at.UTC(), id); err != nil {
		return fmt.Errorf("failed to mark capture uploaded: %w", err)
	}
	return nil
}

// MarkFailed records a failed upload with the given terminal or retryable status.
func (r *CaptureRepository) MarkFailed(id int64, status model.CaptureStatus, reason string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		UPDATE captures SET status = ?, last_error = ? WHERE id = ?
	`, string(status), reason, id); err != nil {
		return fmt.Errorf("failed to mark capture failed: %w", err)
	}
	return nil
}

func captureWhere(filter *dto.CaptureFilters) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return where, args
	}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}

	if !filter.CreatedAfter.IsZero() {
		where += " AND created_at >= ?"
		args = append(args, filter.CreatedAfter.UTC())
	}

	if !filter.CreatedBefore.IsZero() {
		where += " AND created_at <= ?"
		args = append(args, filter.CreatedBefore.UTC())
	}

	return where, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCapture(row rowScanner) (*model.Capture, error) {
	var (
		c          model.Capture
		status     string
		uploadedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Filename, &c.FilePath, &c.FileSize, &c.Faces, &status,
		&c.RemoteID, &c.LastError, &c.Attempts, &c.CreatedAt, &uploadedAt); err != nil {
		return nil, err
	}
	c.Status = model.CaptureStatus(status)
	if uploadedAt.Valid {
		t := uploadedAt.Time
		c.UploadedAt = &t
	}
	return &c, nil
}

func scanCaptures(rows *sql.Rows) ([]model.Capture, error) {
	var captures []model.Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate captures: %w", err)
	}
	return captures, nil
}
