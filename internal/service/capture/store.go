package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/logger"
	"facewatch/internal/model"
	"facewatch/internal/repository"
)

const (
	filePrefix      = "face_"
	fileExt         = ".jpg"
	timestampLayout = "2006-01-02_15-04-05.000"
)

// Snapshot is anything that can be encoded to JPEG, normally a camera frame.
type Snapshot interface {
	JPEG() ([]byte, error)
}

// Store writes face snapshots into the scratch directory and the capture ledger.
type Store struct {
	dir      string
	captures repository.CaptureRepository
	logger   *logger.Logger
}

// NewStore creates a Store. captures may be nil when no ledger is configured.
func NewStore(config *config.Config, captures repository.CaptureRepository, logger *logger.Logger) *Store {
	return &Store{
		dir:      config.ScratchDirectory,
		captures: captures,
		logger:   logger,
	}
}

// Dir returns the scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save encodes snap, writes it under a timestamped name and records it as pending.
func (s *Store) Save(snap Snapshot, faces int, at time.Time) (model.Capture, error) {
	data, err := snap.JPEG()
	if err != nil {
		return model.Capture{}, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return model.Capture{}, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	filename, fullpath, err := s.writeUnique(at, data)
	if err != nil {
		return model.Capture{}, err
	}

	c := model.Capture{
		Filename:  filename,
		FilePath:  fullpath,
		FileSize:  int64(len(data)),
		Faces:     faces,
		Status:    model.CaptureStatusPending,
		CreatedAt: at,
	}

	if s.captures != nil {
		id, err := s.captures.Insert(&c)
		if err != nil {
			s.logger.Error("Error saving capture to database %s: %v", filename, err)
		} else {
			c.ID = id
		}
	}

	s.logger.Info("Saved capture %s (%d bytes, %d faces)", filename, len(data), faces)
	return c, nil
}

// writeUnique creates the file exclusively, adding a counter on name clashes.
func (s *Store) writeUnique(at time.Time, data []byte) (string, string, error) {
	base := FileName(at)
	stem := strings.TrimSuffix(base, fileExt)

	for i := 0; i < 100; i++ {
		filename := base
		if i > 0 {
			filename = fmt.Sprintf("%s_%d%s", stem, i, fileExt)
		}
		fullpath := filepath.Join(s.dir, filename)

		f, err := os.OpenFile(fullpath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to create capture %s: %w", filename, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(fullpath)
			return "", "", fmt.Errorf("failed to write capture %s: %w", filename, errors.Join(werr, cerr))
		}
		return filename, fullpath, nil
	}
	return "", "", fmt.Errorf("no free capture name for %s", base)
}

// Adopt registers scratch files the ledger does not know about (for example
// files left by a crash before the insert) and returns every capture that
// still waits for upload, oldest first.
func (s *Store) Adopt() ([]model.Capture, error) {
	files, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	var found []model.Capture
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != fileExt {
			continue
		}

		created, err := ParseFileName(file.Name())
		if err != nil {
			s.logger.Warning("Skipping %s: %v", file.Name(), err)
			continue
		}

		info, err := file.Info()
		if err != nil {
			s.logger.Warning("Failed to get info for %s: %v", file.Name(), err)
			continue
		}

		found = append(found, model.Capture{
			Filename:  file.Name(),
			FilePath:  filepath.Join(s.dir, file.Name()),
			FileSize:  info.Size(),
			Status:    model.CaptureStatusPending,
			CreatedAt: created,
		})
	}

	if s.captures == nil {
		sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
		return found, nil
	}

	for i := range found {
		existing, err := s.captures.GetByFilename(found[i].Filename)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		if _, err := s.captures.Insert(&found[i]); err != nil {
			return nil, err
		}
		s.logger.Info("Adopted untracked capture %s", found[i].Filename)
	}

	retryable, err := s.captures.GetRetryable()
	if err != nil {
		return nil, err
	}

	// Rows whose file vanished cannot be uploaded any more.
	var pending []model.Capture
	for _, c := range retryable {
		if _, err := os.Stat(c.FilePath); errors.Is(err, os.ErrNotExist) {
			if err := s.captures.MarkFailed(c.ID, model.CaptureStatusDiscarded, "local file missing"); err != nil {
				s.logger.Error("Error updating capture %d: %v", c.ID, err)
			}
			continue
		}
		pending = append(pending, c)
	}
	return pending, nil
}

// FileName returns the scratch file name for a capture taken at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + fileExt
}

// ParseFileName extracts the capture time from a scratch file name.
func ParseFileName(name string) (time.Time, error) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
		return time.Time{}, fmt.Errorf("invalid capture filename format: %s", name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt)
	if len(stamp) > len(timestampLayout) {
		// Drop a clash counter such as "_1".
		stamp = stamp[:len(timestampLayout)]
	}
	t, err := time.ParseInLocation(timestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid capture timestamp in %s: %w", name, err)
	}
	return t, nil
}
