package domain

import (
	"image"
	"time"
)

// CaptureSource selects where a new image comes from.
type CaptureSource int

const (
	SourceCamera CaptureSource = iota
	SourceLibrary
)

// String returns a human-readable capture source.
func (s CaptureSource) String() string {
	switch s {
	case SourceCamera:
		return "camera"
	case SourceLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// RawImage is an image as handed over by an acquirer, before any
// preprocessing.
type RawImage struct {
	ID         string
	Source     CaptureSource
	Path       string // origin on disk, empty for in-memory captures
	Data       []byte
	AcquiredAt time.Time
}

// ImageArtifact is the fixed-format square image produced by the
// preprocessor and consumed by an inference gateway.
type ImageArtifact struct {
	ID     string // same as the RawImage it was built from
	Size   int    // width == height == Size
	Pixels *image.RGBA
	JPEG   []byte
}

// Prediction is one ranked label emitted by an inference gateway.
type Prediction struct {
	ClassName string
	Score     float64
}

// PredictionTiming is diagnostic only. The controller stores it and never
// looks inside.
type PredictionTiming struct {
	Preprocess time.Duration
	Inference  time.Duration
}

// ClassificationOutcome is the result of one classification attempt. When
// Error is non-empty the outcome is a failure and Predictions is ignored.
type ClassificationOutcome struct {
	Predictions []Prediction
	Timing      PredictionTiming
	Error       string
}

// Failed reports whether the outcome carries an error.
func (o ClassificationOutcome) Failed() bool {
	return o.Error != ""
}

// Top returns the highest-ranked prediction, if any.
func (o ClassificationOutcome) Top() (Prediction, bool) {
	if len(o.Predictions) == 0 {
		return Prediction{}, false
	}
	return o.Predictions[0], true
}

// OutcomeFromError builds a failed outcome carrying err's message verbatim.
func OutcomeFromError(err error) ClassificationOutcome {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return ClassificationOutcome{Error: msg}
}
