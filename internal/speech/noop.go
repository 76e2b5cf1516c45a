package speech

import "github.com/hammamikhairi/monan/internal/logger"

var _ Voice = (*NoOp)(nil)

// NoOp is a silent Voice. Used when speech is disabled or unavailable.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a silent voice.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Say logs what would have been spoken.
func (n *NoOp) Say(text string, priority Priority) {
	n.log.Debug("speech no-op: would say %q (priority=%d)", text, priority)
}

// Interrupt does nothing.
func (n *NoOp) Interrupt() {}
