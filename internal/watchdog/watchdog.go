// Package watchdog puts an upper bound on classification time. The
// controller itself never times out; the watchdog watches its phase and
// ends a cycle that has been classifying for too long by synthesizing an
// error outcome.
package watchdog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Target is the part of the controller the watchdog needs.
type Target interface {
	State() domain.ControllerState
	TimeoutAttempt(attempt uint64, outcome domain.ClassificationOutcome) bool
}

// Option configures the watchdog.
type Option func(*Watchdog)

// WithTickInterval sets how often the phase is checked.
func WithTickInterval(d time.Duration) Option {
	return func(w *Watchdog) {
		if d > 0 {
			w.tickInterval = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

// WithNotifier announces timeouts to the user.
func WithNotifier(n domain.Notifier) Option {
	return func(w *Watchdog) { w.notifier = n }
}

// Watchdog runs in the background and fails overdue classifications.
type Watchdog struct {
	target       Target
	timeout      time.Duration
	tickInterval time.Duration
	notifier     domain.Notifier
	now          func() time.Time
	log          *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a watchdog. A non-positive timeout disables it.
func New(target Target, timeout time.Duration, log *logger.Logger, opts ...Option) *Watchdog {
	w := &Watchdog{
		target:       target,
		timeout:      timeout,
		tickInterval: 500 * time.Millisecond,
		now:          time.Now,
		log:          log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background loop. Non-blocking.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timeout <= 0 {
		w.log.Debug("watchdog disabled")
		return
	}
	if w.running {
		w.log.Warn("watchdog already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})

	go w.loop(childCtx, w.done)
	w.log.Info("watchdog started (timeout=%s, tick=%s)", w.timeout, w.tickInterval)
}

// Stop shuts the loop down and waits for it to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.running = false
	done := w.done
	w.mu.Unlock()

	<-done
	w.log.Info("watchdog stopped")
}

func (w *Watchdog) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check runs one cycle and reports whether a classification was timed out.
func (w *Watchdog) Check(ctx context.Context) bool {
	st := w.target.State()
	if st.Phase != domain.PhaseClassifying || w.timeout <= 0 {
		return false
	}
	elapsed := w.now().Sub(st.PhaseSince)
	if elapsed < w.timeout {
		return false
	}

	msg := fmt.Sprintf("classification timed out after %s", w.timeout)
	if !w.target.TimeoutAttempt(st.Attempt, domain.ClassificationOutcome{Error: msg}) {
		// The real outcome won the race, or a newer cycle started.
		return false
	}
	w.log.Warn("attempt %d: %s", st.Attempt, msg)

	if w.notifier != nil {
		if err := w.notifier.NotifyUrgent(ctx, "Classification took too long and was stopped."); err != nil {
			w.log.Error("watchdog: notifying timeout: %v", err)
		}
	}
	return true
}
