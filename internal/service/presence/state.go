// Package presence turns per-frame face counts into edge-triggered signals
// and capture decisions.
package presence

import "time"

// Signal is the single byte written to the microcontroller.
type Signal byte

const (
	FaceDetected Signal = 'F'
	NoFace       Signal = 'N'
)

func (s Signal) String() string {
	return string(rune(s))
}

// Policy holds the timing knobs of the state machine.
type Policy struct {
	// Cooldown is the minimum gap between two signal attempts. A transition
	// inside the gap is dropped, not queued.
	Cooldown time.Duration
	// CaptureInterval is how long presence must persist before the first
	// snapshot and between later ones. Zero disables capture.
	CaptureInterval time.Duration
}

// State is the detection state carried between loop iterations.
type State struct {
	FacePresent   bool
	PresentSince  time.Time
	LastSignalAt  time.Time
	LastCaptureAt time.Time
}

// Decision is what the caller must do for the current frame.
type Decision struct {
	Transition bool
	Signal     Signal
	HasSignal  bool
	// Suppressed is set when a transition happened inside the cooldown.
	Suppressed bool
	Capture    bool
}

// Step applies one frame's face count to s.
//
// The state flips on every transition even if the signal is suppressed;
// LastSignalAt only moves when a signal is actually emitted.
func Step(s State, faces int, now time.Time, p Policy) (State, Decision) {
	var d Decision

	present := faces > 0
	if present != s.FacePresent {
		d.Transition = true
		candidate := NoFace
		if present {
			candidate = FaceDetected
		}

		if s.LastSignalAt.IsZero() || now.Sub(s.LastSignalAt) > p.Cooldown {
			d.Signal = candidate
			d.HasSignal = true
			s.LastSignalAt = now
		} else {
			d.Suppressed = true
		}

		s.FacePresent = present
		if present {
			s.PresentSince = now
		} else {
			s.PresentSince = time.Time{}
		}
		s.LastCaptureAt = time.Time{}
	}

	if s.FacePresent && p.CaptureInterval > 0 {
		ref := s.PresentSince
		if s.LastCaptureAt.After(ref) {
			ref = s.LastCaptureAt
		}
		if now.Sub(ref) >= p.CaptureInterval {
			d.Capture = true
			s.LastCaptureAt = now
		}
	}

	return s, d
}
