package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"facewatch/internal/dto"
	"facewatch/internal/model"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "data", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func insertCapture(t *testing.T, repo *CaptureRepository, name string, created time.Time) int64 {
	t.Helper()

	id, err := repo.Insert(&model.Capture{
		Filename:  name,
		FilePath:  filepath.Join("/scratch", name),
		FileSize:  512,
		Faces:     1,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("Failed to insert capture %s: %v", name, err)
	}
	return id
}

func TestDatabase_CreatesFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "ledger.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestCaptureRepository_InsertAndGet(t *testing.T) {
	repo := NewCaptureRepository(setupTestDB(t))
	created := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	id := insertCapture(t, repo, "face_a.jpg", created)

	got, err := repo.GetByFilename("face_a.jpg")
	if err != nil {
		t.Fatalf("GetByFilename failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected capture, got nil")
	}
	if got.ID != id {
		t.Errorf("Expected id %d, got %d", id, got.ID)
	}
	if got.Filename != "face_a.jpg" {
		t.Errorf("Expected filename face_a.jpg, got %s", got.Filename)
	}
	if got.Status != model.CaptureStatusPending {
		t.Errorf("Expected pending status, got %s", got.Status)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at %v, got %v", created, got.CreatedAt)
	}
	if got.UploadedAt != nil {
		t.Errorf("Expected nil uploaded_at, got %v", got.UploadedAt)
	}

	missing, err := repo.GetByFilename("face_missing.jpg")
	if err != nil {
		t.Fatalf("GetByFilename for missing row failed: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing capture")
	}
}

func TestCaptureRepository_DuplicateFilename(t *testing.T) {
	repo := NewCaptureRepository(setupTestDB(t))
	insertCapture(t, repo, "dup.jpg", time.Now())

	_, err := repo.Insert(&model.Capture{Filename: "dup.jpg", FilePath: "/x", CreatedAt: time.Now()})
	if err == nil {
		t.Error("Expected unique constraint error for duplicate filename")
	}
}

func TestCaptureRepository_StatusTransitions(t *testing.T) {
	repo := NewCaptureRepository(setupTestDB(t))
	id := insertCapture(t, repo, "face_b.jpg", time.Now())

	if err := repo.MarkUploading(id); err != nil {
		t.Fatalf("MarkUploading failed: %v", err)
	}
	if err := repo.MarkFailed(id, model.CaptureStatusFailed, "timeout"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	got, _ := repo.GetByFilename("face_b.jpg")
	if got.Status != model.CaptureStatusFailed || got.LastError != "timeout" || got.Attempts != 1 {
		t.Errorf("Unexpected failed capture: %+v", got)
	}

	if err := repo.MarkUploading(id); err != nil {
		t.Fatalf("MarkUploading failed: %v", err)
	}
	uploadedAt := time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)
	if err := repo.MarkUploaded(id, "remote-1", uploadedAt); err != nil {
		t.Fatalf("MarkUploaded failed: %v", err)
	}

	got, _ = repo.GetByFilename("face_b.jpg")
	if got.Status != model.CaptureStatusUploaded {
		t.Errorf("Expected uploaded, got %s", got.Status)
	}
	if got.RemoteID != "remote-1" {
		t.Errorf("Expected remote-1, got %s", got.RemoteID)
	}
	if got.LastError != "" {
		t.Errorf("Expected cleared error, got %s", got.LastError)
	}
	if got.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", got.Attempts)
	}
	if got.UploadedAt == nil || !got.UploadedAt.Equal(uploadedAt) {
		t.Errorf("Expected uploaded_at %v, got %v", uploadedAt, got.UploadedAt)
	}
}

func TestCaptureRepository_GetRetryable(t *testing.T) {
	repo := NewCaptureRepository(setupTestDB(t))
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	pending := insertCapture(t, repo, "p.jpg", base.Add(2*time.Minute))
	failed := insertCapture(t, repo, "f.jpg", base.Add(1*time.Minute))
	uploaded := insertCapture(t, repo, "u.jpg", base)
	discarded := insertCapture(t, repo, "d.jpg", base.Add(3*time.Minute))

	repo.MarkFailed(failed, model.CaptureStatusFailed, "boom")
	repo.MarkUploaded(uploaded, "r", base)
	repo.MarkFailed(discarded, model.CaptureStatusDiscarded, "boom")

	retry, err := repo.GetRetryable()
	if err != nil {
		t.Fatalf("GetRetryable failed: %v", err)
	}
	if len(retry) != 2 {
		t.Fatalf("Expected 2 retryable captures, got %d", len(retry))
	}
	if retry[0].ID != failed || retry[1].ID != pending {
		t.Errorf("Expected oldest first [%d %d], got [%d %d]", failed, pending, retry[0].ID, retry[1].ID)
	}
}

func TestCaptureRepository_FilterAndCount(t *testing.T) {
	repo := NewCaptureRepository(setupTestDB(t))
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, name := range []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"} {
		insertCapture(t, repo, name, base.Add(time.Duration(i)*time.Hour))
	}
	id, _ := repo.GetByFilename("4.jpg")
	repo.MarkUploaded(id.ID, "r4", base)

	tests := []struct {
		name     string
		filter   *dto.CaptureFilters
		expected int
	}{
		{"nil filter", nil, 4},
		{"pending", &dto.CaptureFilters{Status: "pending"}, 3},
		{"uploaded", &dto.CaptureFilters{Status: "uploaded"}, 1},
		{"after", &dto.CaptureFilters{CreatedAfter: base.Add(90 * time.Minute)}, 2},
		{"before", &dto.CaptureFilters{CreatedBefore: base.Add(30 * time.Minute)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := repo.GetTotalCount(tt.filter)
			if err != nil {
				t.Fatalf("GetTotalCount failed: %v", err)
			}
			if count != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, count)
			}

			all, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			if len(all) != tt.expected {
				t.Errorf("Expected %d rows, got %d", tt.expected, len(all))
			}
		})
	}

	page, err := repo.GetAll(&dto.CaptureFilters{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("GetAll with pagination failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(page))
	}
	if page[0].Filename != "3.jpg" || page[1].Filename != "2.jpg" {
		t.Errorf("Expected newest-first page [3.jpg 2.jpg], got [%s %s]", page[0].Filename, page[1].Filename)
	}
}

func TestSignalRepository_InsertAndRecent(t *testing.T) {
	repo := NewSignalRepository(setupTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []model.SignalEvent{
		{Signal: "F", Sent: true, Timestamp: base},
		{Signal: "N", Sent: false, Error: "port closed", Timestamp: base.Add(time.Second)},
	}
	for i := range events {
		if _, err := repo.Insert(&events[i]); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	recent, err := repo.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(recent))
	}
	if recent[0].Signal != "N" || recent[0].Sent || recent[0].Error != "port closed" {
		t.Errorf("Unexpected newest event: %+v", recent[0])
	}
	if recent[1].Signal != "F" || !recent[1].Sent {
		t.Errorf("Unexpected oldest event: %+v", recent[1])
	}
}

func TestDatabase_ConcurrentInserts(t *testing.T) {
	repo := NewCaptureRepository(setupTestDB(t))

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_, err := repo.Insert(&model.Capture{
				Filename:  "concurrent_" + string(rune('a'+idx)) + ".jpg",
				FilePath:  "/scratch/",
				CreatedAt: time.Now(),
			})
			if err != nil {
				t.Errorf("Concurrent insert %d failed: %v", idx, err)
			}
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	count, err := repo.GetTotalCount(nil)
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 10 {
		t.Errorf("Expected 10 captures, got %d", count)
	}
}
