package sqlite

import (
	"fmt"

	"facewatch/internal/model"
)

// SignalRepository implements repository.SignalRepository for SQLite.
type SignalRepository struct {
	db *DB
}

// NewSignalRepository creates a new SQLite signal repository.
func NewSignalRepository(db *DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Insert records a signal attempt.
func (r *SignalRepository) Insert(ev *model.SignalEvent) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO signals (signal, sent, error, timestamp)
		VALUES (?, ?, ?, ?)
	`, ev.Signal, ev.Sent, ev.Error, ev.Timestamp.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert signal: %w", err)
	}

	return result.LastInsertId()
}

// GetRecent returns the latest signal attempts, newest first.
func (r *SignalRepository) GetRecent(limit int) ([]model.SignalEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Conn().Query(`
		SELECT id, signal, sent, error, timestamp
		FROM signals ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var events []model.SignalEvent
	for rows.Next() {
		var ev model.SignalEvent
		if err := rows.Scan(&ev.ID, &ev.Signal, &ev.Sent, &ev.Error, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
