package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"facewatch/internal/logger"
	"facewatch/internal/model"
	"facewatch/internal/repository"
)

var (
	// ErrQueueFull is returned by Enqueue when the worker is too far behind.
	// The capture stays on disk and in the ledger as pending.
	ErrQueueFull = errors.New("upload queue full")
	// ErrPipelineClosed is returned by Enqueue after Close.
	ErrPipelineClosed = errors.New("upload pipeline closed")
)

// Uploader writes one local file to remote storage and returns its remote ID.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Result reports what happened to one capture.
type Result struct {
	Capture  model.Capture
	RemoteID string
	Err      error
	// Retained is set when a failed upload left the local file in place.
	Retained bool
}

// Options configure a Pipeline.
type Options struct {
	QueueSize int
	Timeout   time.Duration
	// KeepFailed keeps the local file after a failed upload. When false the
	// file is deleted regardless of outcome.
	KeepFailed bool
	// OnResult, when set, is called from the worker after every item.
	OnResult func(Result)
}

type job struct {
	capture model.Capture
	done    chan Result
}

// Pipeline uploads captures one at a time on a single background worker.
type Pipeline struct {
	uploader Uploader
	captures repository.CaptureRepository
	logger   *logger.Logger
	opts     Options
	now      func() time.Time

	queue  chan job
	closed bool
	mu     sync.RWMutex
	wg     sync.WaitGroup
}

// NewPipeline starts the worker. captures may be nil.
func NewPipeline(uploader Uploader, captures repository.CaptureRepository, logger *logger.Logger, opts Options) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}

	p := &Pipeline{
		uploader: uploader,
		captures: captures,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		queue:    make(chan job, opts.QueueSize),
	}

	p.wg.Add(1)
	go p.worker()

	p.logger.Info("📤 Upload worker started (queue %d, timeout %v)", opts.QueueSize, opts.Timeout)
	return p
}

// Enqueue hands a capture to the worker without blocking. The returned
// channel receives exactly one Result.
func (p *Pipeline) Enqueue(c model.Capture) (<-chan Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPipelineClosed
	}

	j := job{capture: c, done: make(chan Result, 1)}
	select {
	case p.queue <- j:
		return j.done, nil
	default:
		p.logger.Warning("⚠️  Upload queue full - %s stays pending", c.Filename)
		return nil, ErrQueueFull
	}
}

// Pending returns the number of queued, not yet started items.
func (p *Pipeline) Pending() int {
	return len(p.queue)
}

// Close stops accepting work and waits until every queued item is processed.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("🛑 Upload worker stopped")
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for j := range p.queue {
		res := p.process(j.capture)
		j.done <- res
		if p.opts.OnResult != nil {
			p.opts.OnResult(res)
		}
	}
}

func (p *Pipeline) process(c model.Capture) Result {
	res := Result{Capture: c}

	if p.captures != nil && c.ID != 0 {
		if err := p.captures.MarkUploading(c.ID); err != nil {
			p.logger.Error("Error updating capture %d: %v", c.ID, err)
		}
	}

	ctx := context.Background()
	cancel := func() {}
	if p.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
	}
	remoteID, err := p.uploader.Upload(ctx, c.FilePath)
	cancel()

	if err == nil {
		res.RemoteID = remoteID
		p.logger.Info("Uploaded %s as %s", c.Filename, remoteID)
		if rmErr := os.Remove(c.FilePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			p.logger.Error("Failed to delete uploaded capture %s: %v", c.FilePath, rmErr)
		}
		if p.captures != nil && c.ID != 0 {
			if err := p.captures.MarkUploaded(c.ID, remoteID, p.now()); err != nil {
				p.logger.Error("Error updating capture %d: %v", c.ID, err)
			}
		}
		return res
	}

	res.Err = fmt.Errorf("upload %s: %w", c.Filename, err)
	p.logger.Error("Failed to upload %s: %v", c.Filename, err)

	status := model.CaptureStatusFailed
	if p.opts.KeepFailed {
		res.Retained = true
	} else {
		status = model.CaptureStatusDiscarded
		if rmErr := os.Remove(c.FilePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			p.logger.Error("Failed to delete capture %s: %v", c.FilePath, rmErr)
		}
	}

	if p.captures != nil && c.ID != 0 {
		if err := p.captures.MarkFailed(c.ID, status, err.Error()); err != nil {
			p.logger.Error("Error updating capture %d: %v", c.ID, err)
		}
	}
	return res
}
