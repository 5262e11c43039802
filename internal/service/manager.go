package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"facewatch/internal/config"
	"facewatch/internal/dto"
	"facewatch/internal/logger"
	"facewatch/internal/service/capture"
	"facewatch/internal/service/presence"
	"facewatch/internal/service/upload"
	"facewatch/internal/service/vision"
)

// Broadcaster receives status events for viewers.
type Broadcaster interface {
	Broadcast(ev dto.PresenceEvent)
}

// Deps are the collaborators of the detection loop. Source, Detector and
// Notifier are required; everything else may be nil.
type Deps struct {
	Source   vision.Source
	Detector vision.Detector
	Notifier *presence.Notifier
	Store    *capture.Store
	Pipeline *upload.Pipeline
	Hub      Broadcaster
	Display  vision.Display
	// Link is closed with the manager, normally the serial port.
	Link io.Closer
}

// Manager runs the single polling loop: read, detect, signal, capture.
type Manager struct {
	source   vision.Source
	detector vision.Detector
	notifier *presence.Notifier
	store    *capture.Store
	pipeline *upload.Pipeline
	hub      Broadcaster
	display  vision.Display
	link     io.Closer
	logger   *logger.Logger

	exitKey int
	now     func() time.Time

	lastMu sync.RWMutex
	last   dto.PresenceEvent

	frames    int
	closeOnce sync.Once
}

func NewManager(deps Deps, config *config.Config, logger *logger.Logger) *Manager {
	exitKey := -1
	if config.ExitKey != "" {
		exitKey = int(config.ExitKey[0])
	}

	m := &Manager{
		source:   deps.Source,
		detector: deps.Detector,
		notifier: deps.Notifier,
		store:    deps.Store,
		pipeline: deps.Pipeline,
		hub:      deps.Hub,
		display:  deps.Display,
		link:     deps.Link,
		logger:   logger,
		exitKey:  exitKey,
		now:      time.Now,
	}
	m.last = dto.PresenceEvent{Kind: dto.EventPresence, Timestamp: m.now()}

	m.logger.Info("🎬 Manager started - capture %v, preview %v, signalling %v",
		m.store != nil, m.display != nil, deps.Link != nil)
	return m
}

// Run polls the camera until ctx is cancelled or the exit key is pressed,
// which both return nil. A frame read or detection failure is returned.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Detection loop stopped after %d frames", m.frames)
			return nil
		default:
		}

		quit, err := m.processFrame()
		if err != nil {
			return err
		}
		if quit {
			m.logger.Info("Exit key pressed after %d frames", m.frames)
			return nil
		}
	}
}

func (m *Manager) processFrame() (bool, error) {
	frame, err := m.source.Read()
	if err != nil {
		return false, err
	}
	defer frame.Close()
	m.frames++

	faces, err := m.detector.Detect(frame)
	if err != nil {
		return false, fmt.Errorf("face detection: %w", err)
	}

	now := m.now()
	out := m.notifier.Observe(len(faces), now)

	if out.Transition {
		m.publish(dto.PresenceEvent{
			Kind:      dto.EventPresence,
			Present:   len(faces) > 0,
			Faces:     dto.FromRectangles(faces),
			Timestamp: now,
		})
	}
	if out.HasSignal {
		ev := dto.PresenceEvent{
			Kind:      dto.EventSignal,
			Present:   len(faces) > 0,
			Signal:    out.Signal.String(),
			Sent:      out.Sent,
			Timestamp: now,
		}
		if out.SendErr != nil {
			ev.Error = out.SendErr.Error()
		}
		m.publish(ev)
	}
	if out.Capture {
		m.capture(frame, len(faces), now)
	}

	if m.display == nil {
		return false, nil
	}
	if err := m.display.Show(frame, faces); err != nil {
		m.logger.Error("Failed to render preview: %v", err)
	}
	return m.display.PollKey() == m.exitKey, nil
}

func (m *Manager) capture(frame vision.Frame, faces int, now time.Time) {
	if m.store == nil {
		return
	}

	c, err := m.store.Save(frame, faces, now)
	if err != nil {
		m.logger.Error("Failed to save capture: %v", err)
		return
	}
	m.logger.Info("📸 Captured %s (%d face(s))", c.Filename, faces)
	m.publish(dto.PresenceEvent{
		Kind:      dto.EventCapture,
		Present:   true,
		Filename:  c.Filename,
		Timestamp: now,
	})

	if m.pipeline == nil {
		m.logger.Warning("Uploads disabled - %s stays pending", c.Filename)
		return
	}
	if _, err := m.pipeline.Enqueue(c); err != nil && !errors.Is(err, upload.ErrQueueFull) {
		m.logger.Error("Failed to enqueue %s: %v", c.Filename, err)
	}
}

// UploadResult turns a pipeline result into a viewer event. Wired as the
// pipeline's OnResult callback.
func (m *Manager) UploadResult(res upload.Result) {
	ev := dto.PresenceEvent{
		Kind:      dto.EventUpload,
		Present:   m.notifier.State().FacePresent,
		Filename:  res.Capture.Filename,
		RemoteID:  res.RemoteID,
		Timestamp: m.now(),
	}
	if res.Err != nil {
		ev.Error = res.Err.Error()
	}
	m.publish(ev)
}

func (m *Manager) publish(ev dto.PresenceEvent) {
	m.lastMu.Lock()
	m.last = ev
	m.lastMu.Unlock()

	if m.hub != nil {
		m.hub.Broadcast(ev)
	}
}

// Snapshot returns the latest event together with the current presence.
func (m *Manager) Snapshot() dto.PresenceEvent {
	m.lastMu.RLock()
	ev := m.last
	m.lastMu.RUnlock()

	ev.Present = m.notifier.State().FacePresent
	return ev
}

// Close drains the upload queue and releases the serial link, camera and
// preview window, in that order.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.pipeline != nil {
			m.pipeline.Close()
		}
		if m.link != nil {
			if err := m.link.Close(); err != nil {
				m.logger.Error("Failed to close serial link: %v", err)
			}
		}
		if err := m.source.Close(); err != nil {
			m.logger.Error("Failed to close camera: %v", err)
		}
		if c, ok := m.detector.(io.Closer); ok {
			c.Close()
		}
		if m.display != nil {
			m.display.Close()
		}
		m.logger.Info("🛑 Manager stopped")
	})
}
