package presence

import (
	"sync"
	"time"

	"facewatch/internal/logger"
	"facewatch/internal/model"
	"facewatch/internal/repository"
)

// Signaler delivers a signal byte to the microcontroller.
type Signaler interface {
	Send(sig Signal) error
}

// Outcome is a Decision plus what happened when the signal was written.
type Outcome struct {
	Decision
	// Sent reports that the byte reached the port. False with a nil SendErr
	// means no port was configured.
	Sent    bool
	SendErr error
}

// Notifier drives Step with the wall clock and writes emitted signals.
type Notifier struct {
	state    State
	policy   Policy
	signaler Signaler
	signals  repository.SignalRepository
	logger   *logger.Logger
	mu       sync.Mutex
}

// NewNotifier creates a Notifier starting in the ABSENT state. signaler and
// signals may be nil: detection then runs without signalling or history.
func NewNotifier(policy Policy, signaler Signaler, signals repository.SignalRepository, logger *logger.Logger) *Notifier {
	return &Notifier{
		policy:   policy,
		signaler: signaler,
		signals:  signals,
		logger:   logger,
	}
}

// Observe feeds one frame's face count into the state machine.
func (n *Notifier) Observe(faces int, now time.Time) Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()

	var d Decision
	n.state, d = Step(n.state, faces, now, n.policy)
	out := Outcome{Decision: d}

	if d.Suppressed {
		n.logger.Info("Transition to present=%v inside cooldown, signal dropped", n.state.FacePresent)
	}
	if !d.HasSignal {
		return out
	}

	if n.signaler != nil {
		if err := n.signaler.Send(d.Signal); err != nil {
			out.SendErr = err
			n.logger.Error("Failed to send serial signal '%s': %v", d.Signal, err)
		} else {
			out.Sent = true
			n.logger.Info("Signal '%s' sent", d.Signal)
		}
	}

	if n.signals != nil {
		ev := &model.SignalEvent{
			Signal:    d.Signal.String(),
			Sent:      out.Sent,
			Timestamp: now,
		}
		if out.SendErr != nil {
			ev.Error = out.SendErr.Error()
		}
		if _, err := n.signals.Insert(ev); err != nil {
			n.logger.Error("Error saving signal to database: %v", err)
		}
	}

	return out
}

// State returns a copy of the current detection state.
func (n *Notifier) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}
