package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

var (
	_ domain.Notifier      = (*SpeakingNotifier)(nil)
	_ domain.StateObserver = (*Narrator)(nil)
)

// SpeakingNotifier prints through an inner notifier and also queues the
// message for speech.
type SpeakingNotifier struct {
	text  domain.Notifier
	voice Voice
}

// NewSpeakingNotifier creates a notifier that both prints and speaks.
func NewSpeakingNotifier(text domain.Notifier, voice Voice) *SpeakingNotifier {
	return &SpeakingNotifier{text: text, voice: voice}
}

// Notify prints the message and queues it at normal priority.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	n.voice.Say(message, PriorityNormal)
	return nil
}

// NotifyUrgent prints the message and queues it at high priority.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	n.voice.Say(message, PriorityHigh)
	return nil
}

// Narrator speaks the outcome of every capture cycle.
type Narrator struct {
	voice Voice
	log   *logger.Logger
}

// NewNarrator creates a state observer that talks through voice.
func NewNarrator(voice Voice, log *logger.Logger) *Narrator {
	return &Narrator{voice: voice, log: log}
}

// StateChanged queues the line for the new phase. A new cycle silences
// whatever was still being said about the previous one.
func (n *Narrator) StateChanged(st domain.ControllerState) {
	switch st.Phase {
	case domain.PhaseAcquiring:
		n.voice.Interrupt()
		n.voice.Say(LineThinking(), PriorityLow)
	case domain.PhaseResolved:
		if st.ResolvedRecord != nil {
			n.voice.Say(LineResolved(st.ResolvedRecord.Name), PriorityNormal)
		}
	case domain.PhaseNoMatch:
		n.voice.Say(LineNoMatch(), PriorityNormal)
	case domain.PhaseFailed:
		n.voice.Say(LineFailed(), PriorityHigh)
	}
}

var (
	bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
	ansiCodes     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// cleanForSpeech strips formatting artifacts that shouldn't be spoken.
func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
