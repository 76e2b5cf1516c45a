// Package controller implements the capture-classify-resolve state
// machine. It owns the single ControllerState of a session; every other
// component receives copies.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Option configures the controller.
type Option func(*Controller)

// WithTargetSize overrides the preprocessing size. By default the
// gateway's own TargetSize is used.
func WithTargetSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.targetSize = n
		}
	}
}

// WithObserver registers an observer for every transition.
func WithObserver(o domain.StateObserver) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives one image at a time from acquisition to a resolved
// dish. It depends only on interfaces and is fully testable with mocks.
type Controller struct {
	catalog  domain.Catalog
	perms    domain.PermissionChecker
	acquirer domain.ImageAcquirer
	pre      domain.Preprocessor
	gateway  domain.InferenceGateway
	log      *logger.Logger

	session    string
	targetSize int
	observers  []domain.StateObserver
	now        func() time.Time

	mu      sync.Mutex
	state   domain.ControllerState
	picking bool // permission check or picker open; phase is still Idle

	notifyMu sync.Mutex // keeps observer calls in transition order
}

// New creates a controller in the Idle phase.
func New(
	catalog domain.Catalog,
	perms domain.PermissionChecker,
	acquirer domain.ImageAcquirer,
	pre domain.Preprocessor,
	gateway domain.InferenceGateway,
	log *logger.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		catalog:    catalog,
		perms:      perms,
		acquirer:   acquirer,
		pre:        pre,
		gateway:    gateway,
		log:        log,
		session:    generateID(),
		targetSize: gateway.TargetSize(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.PhaseSince = c.now()
	c.log.Debug("controller %s ready (target size %d)", c.session, c.targetSize)
	return c
}

// SessionID identifies this controller in logs.
func (c *Controller) SessionID() string { return c.session }

// State returns a copy of the current state.
func (c *Controller) State() domain.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot(c.state)
}

// Busy reports whether a capture request would be rejected right now.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.picking || c.state.Phase.InFlight()
}

// RequestCapture runs one full capture cycle and blocks until it ends.
// UIs call it from a goroutine.
//
//   - While another cycle is in flight it returns ErrCaptureInFlight and
//     changes nothing.
//   - From a terminal phase the previous result is dismissed first.
//   - A denied permission returns ErrPermissionDenied; the phase stays Idle.
//   - A cancelled picker returns nil; the phase stays Idle.
//   - Acquisition, preprocessing and inference failures end in Failed and
//     return nil: they are reported through the state, not the error.
func (c *Controller) RequestCapture(ctx context.Context, source domain.CaptureSource) (domain.ControllerState, error) {
	c.mu.Lock()
	if c.picking || c.state.Phase.InFlight() {
		st := snapshot(c.state)
		c.mu.Unlock()
		c.log.Warn("capture from %s rejected: another capture is in progress (%s)", source, st.Phase)
		return st, domain.ErrCaptureInFlight
	}
	c.picking = true
	c.state.Attempt++
	attempt := c.state.Attempt
	if c.state.Phase.Terminal() {
		c.resetLocked()
		c.commitLocked()
	} else {
		c.mu.Unlock()
	}

	c.log.Debug("capture %d: requested from %s", attempt, source)

	ok, err := c.perms.VerifyPermissions(ctx, source)
	if err != nil || !ok {
		c.endPicking()
		if err != nil && !isCancel(ctx, err) {
			c.log.Error("capture %d: permission check failed: %v", attempt, err)
			return c.State(), fmt.Errorf("verifying %s permissions: %w", source, err)
		}
		if err != nil {
			return c.State(), nil
		}
		c.log.Warn("capture %d: %s permission denied", attempt, source)
		return c.State(), domain.ErrPermissionDenied
	}

	raw, err := c.acquirer.Acquire(ctx, source)
	switch {
	case err != nil && isCancel(ctx, err):
		c.endPicking()
		c.log.Debug("capture %d: cancelled", attempt)
		return c.State(), nil
	case err != nil:
		c.log.Error("capture %d: acquisition failed: %v", attempt, err)
		c.failAcquisition(attempt, err)
		return c.State(), nil
	case raw == nil:
		c.endPicking()
		c.log.Debug("capture %d: acquirer returned no image", attempt)
		return c.State(), nil
	}

	// Acquiring: the image exists, preprocessing runs.
	c.mu.Lock()
	c.picking = false
	c.state.Phase = domain.PhaseAcquiring
	c.state.CurrentImage = raw
	c.state.Processed = nil
	c.state.ResolvedRecord = nil
	c.state.LastError = ""
	c.state.Predictions = nil
	c.state.Timing = nil
	c.commitLocked()

	start := c.now()
	art, preErr := c.pre.Normalize(ctx, raw, c.targetSize)
	preDur := c.now().Sub(start)

	// Classifying: preprocessing is over, successful or not.
	c.mu.Lock()
	if c.state.Attempt != attempt || c.state.Phase != domain.PhaseAcquiring {
		c.mu.Unlock()
		return c.State(), nil
	}
	c.state.Phase = domain.PhaseClassifying
	c.state.Processed = art
	c.commitLocked()

	var outcome domain.ClassificationOutcome
	if preErr != nil {
		c.log.Warn("capture %d: preprocessing failed: %v", attempt, preErr)
		outcome = domain.OutcomeFromError(preErr)
	} else {
		outcome = c.gateway.Classify(ctx, art)
	}
	outcome.Timing.Preprocess += preDur

	c.mu.Lock()
	if !c.applyLocked(attempt, outcome) {
		c.mu.Unlock()
		c.log.Debug("capture %d: outcome arrived after the cycle ended, ignored", attempt)
	}
	return c.State(), nil
}

// OnClassificationOutcome applies an outcome to the cycle currently in
// Classifying. Outside Classifying it is ignored and returns false. This
// is how external layers such as a timeout watchdog end a cycle.
func (c *Controller) OnClassificationOutcome(outcome domain.ClassificationOutcome) bool {
	c.mu.Lock()
	if !c.applyLocked(c.state.Attempt, outcome) {
		c.mu.Unlock()
		return false
	}
	return true
}

// TimeoutAttempt is OnClassificationOutcome pinned to one cycle. It is a
// no-op unless that attempt is still classifying, so a caller that read
// State earlier cannot end a newer cycle.
func (c *Controller) TimeoutAttempt(attempt uint64, outcome domain.ClassificationOutcome) bool {
	c.mu.Lock()
	if !c.applyLocked(attempt, outcome) {
		c.mu.Unlock()
		return false
	}
	return true
}

// Dismiss returns from a terminal phase to Idle, clearing the image,
// record, error and diagnostics. It is a no-op elsewhere.
func (c *Controller) Dismiss() bool {
	c.mu.Lock()
	if !c.state.Phase.Terminal() {
		c.mu.Unlock()
		return false
	}
	c.resetLocked()
	c.commitLocked()
	c.log.Debug("dismissed")
	return true
}

// applyLocked is the transition table. It must be called with mu held;
// when it returns true it has committed and released the lock.
func (c *Controller) applyLocked(attempt uint64, outcome domain.ClassificationOutcome) bool {
	if c.state.Phase != domain.PhaseClassifying || c.state.Attempt != attempt {
		return false
	}

	c.state.Timing = &outcome.Timing
	c.state.Predictions = append([]domain.Prediction(nil), outcome.Predictions...)

	top, ok := outcome.Top()
	switch {
	case outcome.Failed():
		c.state.Phase = domain.PhaseFailed
		c.state.LastError = outcome.Error
		c.state.ResolvedRecord = nil
		c.state.Predictions = nil
		c.log.Warn("capture %d: failed: %s", attempt, outcome.Error)

	case !ok:
		c.state.Phase = domain.PhaseNoMatch
		c.state.ResolvedRecord = nil
		c.log.Info("capture %d: no predictions", attempt)

	default:
		if rec, found := c.catalog.FindByImageKey(top.ClassName); found {
			c.state.Phase = domain.PhaseResolved
			c.state.ResolvedRecord = rec
			c.log.Info("capture %d: resolved %s -> %s (%.2f)", attempt, top.ClassName, rec.Name, top.Score)
		} else {
			c.state.Phase = domain.PhaseNoMatch
			c.state.ResolvedRecord = nil
			c.log.Info("capture %d: top label %q has no dish (%.2f)", attempt, top.ClassName, top.Score)
		}
	}

	c.commitLocked()
	return true
}

func (c *Controller) failAcquisition(attempt uint64, err error) {
	c.mu.Lock()
	c.picking = false
	if c.state.Attempt != attempt {
		c.mu.Unlock()
		return
	}
	c.state.Phase = domain.PhaseFailed
	c.state.LastError = err.Error()
	c.state.ResolvedRecord = nil
	c.commitLocked()
}

func (c *Controller) endPicking() {
	c.mu.Lock()
	c.picking = false
	c.mu.Unlock()
}

func (c *Controller) resetLocked() {
	c.state.Phase = domain.PhaseIdle
	c.state.CurrentImage = nil
	c.state.Processed = nil
	c.state.ResolvedRecord = nil
	c.state.LastError = ""
	c.state.Predictions = nil
	c.state.Timing = nil
}

// commitLocked stamps the phase time, releases mu and notifies observers
// with the new state. Observers are called in transition order.
func (c *Controller) commitLocked() {
	c.state.PhaseSince = c.now()
	st := snapshot(c.state)
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	c.log.Debug("phase -> %s (attempt %d)", st.Phase, st.Attempt)
	for _, o := range c.observers {
		o.StateChanged(st)
	}
}

func snapshot(s domain.ControllerState) domain.ControllerState {
	out := s
	if s.Predictions != nil {
		out.Predictions = append([]domain.Prediction(nil), s.Predictions...)
	}
	if s.Timing != nil {
		t := *s.Timing
		out.Timing = &t
	}
	return out
}

func isCancel(ctx context.Context, err error) bool {
	return errors.Is(err, domain.ErrAcquisitionCancelled) ||
		errors.Is(err, context.Canceled) ||
		ctx.Err() != nil
}
