package domain

import "time"

// Phase is the lifecycle position of the capture-classify-resolve machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAcquiring
	PhaseClassifying
	PhaseResolved
	PhaseNoMatch
	PhaseFailed
)

// String returns a human-readable phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiring:
		return "acquiring"
	case PhaseClassifying:
		return "classifying"
	case PhaseResolved:
		return "resolved"
	case PhaseNoMatch:
		return "no_match"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends a capture cycle and waits for
// a dismiss.
func (p Phase) Terminal() bool {
	return p == PhaseResolved || p == PhaseNoMatch || p == PhaseFailed
}

// InFlight reports whether a capture cycle is currently running.
func (p Phase) InFlight() bool {
	return p == PhaseAcquiring || p == PhaseClassifying
}

// ControllerState is the single mutable entity of a session. Only the
// controller writes it; everybody else receives copies.
type ControllerState struct {
	Phase          Phase
	CurrentImage   *RawImage
	Processed      *ImageArtifact
	ResolvedRecord *DishRecord
	LastError      string

	// Diagnostics of the last applied outcome. Lower-ranked predictions
	// never drive resolution.
	Predictions []Prediction
	Timing      *PredictionTiming

	Attempt    uint64    // capture cycle counter
	PhaseSince time.Time // when Phase was entered
}

// HasRecord reports whether a record is resolved.
func (s ControllerState) HasRecord() bool {
	return s.ResolvedRecord != nil
}
