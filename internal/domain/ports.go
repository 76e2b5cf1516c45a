package domain

import "context"

// Catalog is the read-only content catalog. Implementations build their
// indexes once and never change afterwards.
type Catalog interface {
	List() []DishRecord
	Get(id string) (*DishRecord, error)
	FindByImageKey(key string) (*DishRecord, bool)
	Search(query string) []DishSummary
}

// PermissionChecker asks whether the given source may be used. A false
// result with a nil error is a plain denial.
type PermissionChecker interface {
	VerifyPermissions(ctx context.Context, source CaptureSource) (bool, error)
}

// ImageAcquirer obtains a raw image from a source. Implementations return
// ErrAcquisitionCancelled when the user backs out.
type ImageAcquirer interface {
	Acquire(ctx context.Context, source CaptureSource) (*RawImage, error)
}

// Preprocessor turns a raw image into a square artifact of the requested
// size. Implementations wrap failures with ErrPreprocess.
type Preprocessor interface {
	Normalize(ctx context.Context, raw *RawImage, size int) (*ImageArtifact, error)
}

// InferenceGateway classifies preprocessed images. Failures are reported
// inside the outcome, never as a Go error.
type InferenceGateway interface {
	TargetSize() int
	Classify(ctx context.Context, img *ImageArtifact) ClassificationOutcome
	Close() error
}

// ImageResolver maps an image key to a local asset. Unknown keys resolve
// to false.
type ImageResolver interface {
	Resolve(key string) (ImageResource, bool)
}

// StateObserver is told about every controller transition. Observers run
// on the controller's goroutine and must not block.
type StateObserver interface {
	StateChanged(state ControllerState)
}

// StateObserverFunc adapts a function to StateObserver.
type StateObserverFunc func(state ControllerState)

// StateChanged calls f(state).
func (f StateObserverFunc) StateChanged(state ControllerState) { f(state) }

// Notifier delivers messages to the user. Implementations can write to
// stdout or speak through text-to-speech.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// IntentParser converts raw user input into an intent.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}
