package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hammamikhairi/monan/internal/acquire"
	"github.com/hammamikhairi/monan/internal/catalog"
	"github.com/hammamikhairi/monan/internal/conversation"
	"github.com/hammamikhairi/monan/internal/display"
	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
	"github.com/hammamikhairi/monan/internal/speech"
)

// screen is the part of display.UI the app drives.
type screen interface {
	PrintChat(text string)
	PrintInfo(text string)
	PrintHint(text string)
	PrintUrgent(text string)
	ShowDetail(d *display.Detail)
	ShowCatalog(visible bool)
	ScrollItems(n int)
	SetPrompt(p string)
	Refresh()
}

// engine is the part of the controller the app drives.
type engine interface {
	RequestCapture(ctx context.Context, source domain.CaptureSource) (domain.ControllerState, error)
	State() domain.ControllerState
	Dismiss() bool
}

type cliApp struct {
	engine   engine
	catalog  *catalog.Catalog
	parser   domain.IntentParser
	notifier domain.Notifier
	voice    speech.Voice
	prompter *prompter
	ui       screen
	log      *logger.Logger
	gateway  string

	mu       sync.Mutex
	browsing bool // detail opened from the catalog, not from a result
	wg       sync.WaitGroup
}

// run reads input lines until ctx ends, the channel closes or the user
// quits.
func (a *cliApp) run(ctx context.Context, input <-chan string) {
	_ = a.notifier.Notify(ctx, speech.LineWelcome())
	a.ui.PrintHint("Type 'help' for commands, 'quit' to exit.")

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-input:
			if !ok {
				return
			}
		}

		if a.prompter.route(line) {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		intent, err := a.parser.Parse(ctx, line)
		if err != nil {
			a.log.Error("parsing input: %v", err)
			continue
		}
		a.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if !a.handleIntent(ctx, intent) {
			return
		}
	}
}

// handleIntent dispatches one intent. It returns false on quit.
func (a *cliApp) handleIntent(ctx context.Context, intent *domain.Intent) bool {
	switch intent.Type {
	case domain.IntentCaptureCamera:
		a.capture(ctx, domain.SourceCamera, "")
	case domain.IntentCaptureLibrary:
		a.capture(ctx, domain.SourceLibrary, intent.Payload)
	case domain.IntentShowCatalog:
		a.ui.ShowCatalog(true)
	case domain.IntentHideCatalog:
		a.ui.ShowCatalog(false)
	case domain.IntentScroll:
		n, err := strconv.Atoi(intent.Payload)
		if err != nil {
			a.ui.PrintUrgent("Bad scroll amount: " + intent.Payload)
			break
		}
		a.ui.ScrollItems(n)
	case domain.IntentOpenDish:
		a.openDish(intent.Payload)
	case domain.IntentClose:
		a.close()
	case domain.IntentSearch:
		a.search(intent.Payload)
	case domain.IntentStatus:
		a.status()
	case domain.IntentHelp:
		for _, l := range strings.Split(conversation.Help, "\n") {
			a.ui.PrintInfo(l)
		}
	case domain.IntentQuit:
		a.voice.Interrupt()
		a.ui.PrintChat(speech.LineBye())
		return false
	default:
		a.ui.PrintHint(fmt.Sprintf("Didn't catch that: %s. Type 'help'.", intent.Payload))
	}
	return true
}

// capture runs a capture cycle in the background; the controller
// reports progress through StateChanged.
func (a *cliApp) capture(ctx context.Context, source domain.CaptureSource, path string) {
	if path != "" {
		ctx = acquire.WithPath(ctx, path)
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		st, err := a.engine.RequestCapture(ctx, source)
		switch {
		case errors.Is(err, domain.ErrCaptureInFlight):
			a.say(speech.LineCaptureBusy(), true)
		case errors.Is(err, domain.ErrPermissionDenied):
			a.say(speech.LinePermissionDenied(), true)
		case err != nil:
			a.ui.PrintUrgent(err.Error())
		case st.Phase == domain.PhaseIdle:
			a.ui.PrintHint("Cancelled.")
		}
	}()
}

// wait blocks until background captures have returned.
func (a *cliApp) wait() { a.wg.Wait() }

func (a *cliApp) say(text string, urgent bool) {
	if urgent {
		a.ui.PrintUrgent(text)
		a.voice.Say(text, speech.PriorityHigh)
		return
	}
	a.ui.PrintChat(text)
	a.voice.Say(text, speech.PriorityNormal)
}

// StateChanged mirrors controller transitions on screen.
func (a *cliApp) StateChanged(st domain.ControllerState) {
	switch st.Phase {
	case domain.PhaseAcquiring:
		a.ui.PrintHint("Preparing image…")
	case domain.PhaseClassifying:
		a.ui.PrintHint("Classifying…")
	case domain.PhaseResolved:
		a.setBrowsing(false)
		a.ui.PrintChat(fmt.Sprintf("%s (%s)", speech.LineResolved(st.ResolvedRecord.Name), topScore(st)))
		a.ui.ShowDetail(&display.Detail{Record: st.ResolvedRecord, FromResult: true})
	case domain.PhaseNoMatch:
		msg := speech.LineNoMatch()
		if len(st.Predictions) > 0 {
			msg += fmt.Sprintf(" (%s)", topScore(st))
		}
		a.ui.PrintInfo(msg)
	case domain.PhaseFailed:
		a.ui.PrintUrgent("Error: " + st.LastError)
	case domain.PhaseIdle:
		if !a.isBrowsing() {
			a.ui.ShowDetail(nil)
		}
	}
	a.ui.Refresh()
}

func topScore(st domain.ControllerState) string {
	if len(st.Predictions) == 0 {
		return "-"
	}
	p := st.Predictions[0]
	return fmt.Sprintf("%s %.0f%%", p.ClassName, p.Score*100)
}

// openDish shows a dish by 1-based position, image key, id or name.
func (a *cliApp) openDish(ref string) {
	rec := a.findDish(ref)
	if rec == nil {
		a.ui.PrintUrgent(fmt.Sprintf("No dish matches %q.", ref))
		return
	}
	a.setBrowsing(true)
	a.ui.ShowDetail(&display.Detail{Record: rec})
	a.voice.Say(speech.LineDishIntro(rec), speech.PriorityLow)
}

func (a *cliApp) findDish(ref string) *domain.DishRecord {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if rec, ok := a.catalog.At(n - 1); ok {
			return rec
		}
		return nil
	}
	if rec, ok := a.catalog.FindByImageKey(ref); ok {
		return rec
	}
	if rec, err := a.catalog.Get(ref); err == nil {
		return rec
	}
	if hits := a.catalog.Search(ref); len(hits) > 0 {
		if rec, err := a.catalog.Get(hits[0].ID); err == nil {
			return rec
		}
	}
	return nil
}

// close shuts the browse detail, else dismisses the result, else hides
// the catalog.
func (a *cliApp) close() {
	if a.isBrowsing() {
		a.setBrowsing(false)
		a.ui.ShowDetail(nil)
		return
	}
	if a.engine.Dismiss() {
		return
	}
	a.ui.ShowCatalog(false)
}

// onDetailClosed runs when the modal is closed from the keyboard.
func (a *cliApp) onDetailClosed(d display.Detail) {
	if d.FromResult {
		a.engine.Dismiss()
		return
	}
	a.setBrowsing(false)
}

func (a *cliApp) search(q string) {
	hits := a.catalog.Search(q)
	if len(hits) == 0 {
		a.ui.PrintHint(fmt.Sprintf("No dish matches %q.", q))
		return
	}
	for _, h := range hits {
		a.ui.PrintInfo(fmt.Sprintf("%3s. %s (%s)", h.ID, h.Name, h.ImageKey))
	}
	a.ui.PrintHint("Type 'open <n>' to see a dish.")
}

func (a *cliApp) status() {
	st := a.engine.State()
	a.ui.PrintInfo(fmt.Sprintf("Gateway: %s   Phase: %s   Attempt: %d", a.gateway, st.Phase, st.Attempt))
	if st.ResolvedRecord != nil {
		a.ui.PrintInfo("Dish: " + st.ResolvedRecord.Name)
	}
	if st.LastError != "" {
		a.ui.PrintUrgent("Last error: " + st.LastError)
	}
	for i, p := range st.Predictions {
		a.ui.PrintInfo(fmt.Sprintf("  %d. %-18s %6.2f%%", i+1, p.ClassName, p.Score*100))
	}
	if st.Timing != nil {
		a.ui.PrintHint(fmt.Sprintf("  preprocess %s, inference %s", st.Timing.Preprocess, st.Timing.Inference))
	}
}

func (a *cliApp) setBrowsing(v bool) {
	a.mu.Lock()
	a.browsing = v
	a.mu.Unlock()
}

func (a *cliApp) isBrowsing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.browsing
}
