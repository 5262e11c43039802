package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = ".facewatch.lock"

// ErrScratchBusy means another facewatch process owns the scratch directory.
var ErrScratchBusy = errors.New("scratch directory is in use by another facewatch process")

// ScratchLock gives one process at a time the right to save, adopt and
// upload captures in a scratch directory. The OS drops it if the process dies.
type ScratchLock struct {
	fl *flock.Flock
}

// LockScratch creates dir if needed and takes its lock without waiting.
func LockScratch(dir string) (*ScratchLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, lockName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock scratch directory %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScratchBusy, dir)
	}
	return &ScratchLock{fl: fl}, nil
}

func (l *ScratchLock) Release() error {
	return l.fl.Unlock()
}
