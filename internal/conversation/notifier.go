package conversation

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

var (
	_ domain.Notifier = (*TerminalNotifier)(nil)
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = MultiNotifier(nil)
)

// Raw SGR codes. They survive the Bubble Tea scrollback, which lipgloss
// styles only do when a TTY is detected.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	red   = "\033[31m"
	cyan  = "\033[36m"
)

// PrintFunc has the shape of fmt.Printf and display.UI.Printf.
type PrintFunc func(format string, a ...interface{})

// TerminalNotifier prints notices in colour: cyan for routine, red for
// urgent.
type TerminalNotifier struct {
	print PrintFunc
}

// NewTerminalNotifier prints through printFn, or stdout when it is nil.
func NewTerminalNotifier(printFn PrintFunc) *TerminalNotifier {
	if printFn == nil {
		printFn = func(format string, a ...interface{}) { fmt.Printf(format+"\n", a...) }
	}
	return &TerminalNotifier{print: printFn}
}

func (n *TerminalNotifier) Notify(_ context.Context, message string) error {
	n.print("%s", paint(cyan, message))
	return nil
}

func (n *TerminalNotifier) NotifyUrgent(_ context.Context, message string) error {
	n.print("%s", paint(red, message))
	return nil
}

func paint(colour, s string) string { return colour + bold + s + reset }

// LogNotifier records notices in the log so they outlive the session.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.log.Info("notice: %s", message)
	return nil
}

func (n *LogNotifier) NotifyUrgent(_ context.Context, message string) error {
	n.log.Warn("urgent notice: %s", message)
	return nil
}

// MultiNotifier delivers to every member even when one fails, then
// reports the first failure.
type MultiNotifier []domain.Notifier

func (m MultiNotifier) Notify(ctx context.Context, message string) error {
	return m.each(func(n domain.Notifier) error { return n.Notify(ctx, message) })
}

func (m MultiNotifier) NotifyUrgent(ctx context.Context, message string) error {
	return m.each(func(n domain.Notifier) error { return n.NotifyUrgent(ctx, message) })
}

func (m MultiNotifier) each(send func(domain.Notifier) error) error {
	var first error
	for _, n := range m {
		if err := send(n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
