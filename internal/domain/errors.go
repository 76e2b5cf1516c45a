package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound             = errors.New("not found")
	ErrCaptureInFlight      = errors.New("a capture is already in flight")
	ErrPermissionDenied     = errors.New("permissions have not been granted")
	ErrAcquisitionCancelled = errors.New("image acquisition cancelled")
	ErrPreprocess           = errors.New("image preprocessing failed")
	ErrMalformedDataset     = errors.New("malformed dish dataset")
	ErrModelUnavailable     = errors.New("model assets unavailable")
	ErrNotImplemented       = errors.New("not implemented")
)
