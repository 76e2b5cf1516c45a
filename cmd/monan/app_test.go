package main

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/monan/internal/catalog"
	"github.com/hammamikhairi/monan/internal/conversation"
	"github.com/hammamikhairi/monan/internal/display"
	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
	"github.com/hammamikhairi/monan/internal/speech"
)

// ── Mocks ────────────────────────────────────────────────────────

type fakeScreen struct {
	mu      sync.Mutex
	chat    []string
	info    []string
	hints   []string
	urgent  []string
	details []*display.Detail
	catalog []bool
	scrolls []int
	prompts []string
}

func (s *fakeScreen) record(dst *[]string, t string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*dst = append(*dst, t)
}

func (s *fakeScreen) PrintChat(t string)   { s.record(&s.chat, t) }
func (s *fakeScreen) PrintInfo(t string)   { s.record(&s.info, t) }
func (s *fakeScreen) PrintHint(t string)   { s.record(&s.hints, t) }
func (s *fakeScreen) PrintUrgent(t string) { s.record(&s.urgent, t) }
func (s *fakeScreen) SetPrompt(p string)   { s.record(&s.prompts, p) }
func (s *fakeScreen) Refresh()             {}

func (s *fakeScreen) ShowDetail(d *display.Detail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = append(s.details, d)
}

func (s *fakeScreen) ShowCatalog(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = append(s.catalog, v)
}

func (s *fakeScreen) ScrollItems(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolls = append(s.scrolls, n)
}

func (s *fakeScreen) lastDetail() *display.Detail {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.details) == 0 {
		return nil
	}
	return s.details[len(s.details)-1]
}

type fakeEngine struct {
	mu        sync.Mutex
	state     domain.ControllerState
	err       error
	sources   []domain.CaptureSource
	dismissOK bool
	dismissed int
}

func (e *fakeEngine) RequestCapture(_ context.Context, src domain.CaptureSource) (domain.ControllerState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources = append(e.sources, src)
	return e.state, e.err
}

func (e *fakeEngine) State() domain.ControllerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *fakeEngine) Dismiss() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dismissed++
	return e.dismissOK
}

func setupApp(t *testing.T) (*cliApp, *fakeScreen, *fakeEngine) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	cat, err := catalog.LoadDefault(log)
	require.NoError(t, err)

	ui := &fakeScreen{}
	eng := &fakeEngine{}
	voice := speech.NewNoOp(log)
	app := &cliApp{
		engine:   eng,
		catalog:  cat,
		parser:   conversation.NewKeywordParser(log),
		notifier: speech.NewSpeakingNotifier(conversation.NewTerminalNotifier(func(string, ...interface{}) {}), voice),
		voice:    voice,
		prompter: newPrompter(ui),
		ui:       ui,
		log:      log,
		gateway:  "onnx",
	}
	return app, ui, eng
}

// ── Tests ────────────────────────────────────────────────────────

func TestFindDish(t *testing.T) {
	app, _, _ := setupApp(t)

	tests := []struct {
		ref     string
		wantKey string
	}{
		{"5", "banh_mi"},
		{"15", "pho"},
		{"banh_xeo", "banh_xeo"},
		{"Phở", "pho"},
		{"com tam", "com_tam"},
		{"0", ""},
		{"99", ""},
		{"pizza", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			rec := app.findDish(tt.ref)
			if tt.wantKey == "" {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, tt.wantKey, rec.ImageKey)
		})
	}
}

func TestOpenAndCloseBrowseDetail(t *testing.T) {
	app, ui, eng := setupApp(t)

	app.openDish("15")
	d := ui.lastDetail()
	require.NotNil(t, d)
	assert.Equal(t, "pho", d.Record.ImageKey)
	assert.False(t, d.FromResult)

	app.close()
	assert.Nil(t, ui.lastDetail())
	assert.Zero(t, eng.dismissed, "closing a browse detail leaves the controller alone")

	// Nothing open and nothing to dismiss: the catalog is hidden.
	app.close()
	assert.Equal(t, 1, eng.dismissed)
	assert.Equal(t, []bool{false}, ui.catalog)
}

func TestOpenUnknownDish(t *testing.T) {
	app, ui, _ := setupApp(t)
	app.openDish("pizza")
	assert.Empty(t, ui.details)
	require.Len(t, ui.urgent, 1)
}

func TestCloseDismissesResult(t *testing.T) {
	app, ui, eng := setupApp(t)
	eng.dismissOK = true

	app.close()
	assert.Equal(t, 1, eng.dismissed)
	assert.Empty(t, ui.catalog)
}

func TestOnDetailClosed(t *testing.T) {
	app, _, eng := setupApp(t)

	app.openDish("1")
	app.onDetailClosed(display.Detail{})
	assert.False(t, app.isBrowsing())
	assert.Zero(t, eng.dismissed)

	app.onDetailClosed(display.Detail{FromResult: true})
	assert.Equal(t, 1, eng.dismissed)
}

func TestStateChanged(t *testing.T) {
	app, ui, _ := setupApp(t)
	rec, _ := app.catalog.FindByImageKey("pho")

	app.StateChanged(domain.ControllerState{
		Phase:          domain.PhaseResolved,
		ResolvedRecord: rec,
		Predictions:    []domain.Prediction{{ClassName: "pho", Score: 0.93}},
	})
	d := ui.lastDetail()
	require.NotNil(t, d)
	assert.True(t, d.FromResult)
	require.Len(t, ui.chat, 1)
	assert.Contains(t, ui.chat[0], "Phở")
	assert.Contains(t, ui.chat[0], "pho 93%")

	app.StateChanged(domain.ControllerState{Phase: domain.PhaseIdle})
	assert.Nil(t, ui.lastDetail())

	app.StateChanged(domain.ControllerState{Phase: domain.PhaseFailed, LastError: "model exploded"})
	require.Len(t, ui.urgent, 1)
	assert.Contains(t, ui.urgent[0], "model exploded")

	app.StateChanged(domain.ControllerState{Phase: domain.PhaseNoMatch, Predictions: []domain.Prediction{{ClassName: "pizza", Score: 0.5}}})
	assert.Contains(t, ui.info[len(ui.info)-1], "pizza 50%")
}

func TestIdleKeepsBrowseDetail(t *testing.T) {
	app, ui, _ := setupApp(t)

	app.openDish("2")
	n := len(ui.details)
	app.StateChanged(domain.ControllerState{Phase: domain.PhaseIdle})
	assert.Len(t, ui.details, n)
}

func TestCaptureErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		state      domain.ControllerState
		wantUrgent string
		wantHint   string
	}{
		{"busy", domain.ErrCaptureInFlight, domain.ControllerState{Phase: domain.PhaseClassifying}, speech.LineCaptureBusy(), ""},
		{"denied", domain.ErrPermissionDenied, domain.ControllerState{}, speech.LinePermissionDenied(), ""},
		{"cancelled", nil, domain.ControllerState{Phase: domain.PhaseIdle}, "", "Cancelled."},
		{"resolved", nil, domain.ControllerState{Phase: domain.PhaseResolved}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, ui, eng := setupApp(t)
			eng.err, eng.state = tt.err, tt.state

			app.capture(context.Background(), domain.SourceCamera, "")
			app.wait()

			assert.Equal(t, []domain.CaptureSource{domain.SourceCamera}, eng.sources)
			if tt.wantUrgent != "" {
				assert.Equal(t, []string{tt.wantUrgent}, ui.urgent)
			} else {
				assert.Empty(t, ui.urgent)
			}
			if tt.wantHint != "" {
				assert.Equal(t, []string{tt.wantHint}, ui.hints)
			} else {
				assert.Empty(t, ui.hints)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	app, ui, eng := setupApp(t)
	rec, _ := app.catalog.FindByImageKey("pho")
	eng.state = domain.ControllerState{
		Phase:          domain.PhaseResolved,
		ResolvedRecord: rec,
		Attempt:        3,
		Predictions:    []domain.Prediction{{ClassName: "pho", Score: 0.9}, {ClassName: "bun", Score: 0.05}},
		Timing:         &domain.PredictionTiming{Preprocess: 5 * time.Millisecond, Inference: 40 * time.Millisecond},
	}

	app.status()
	all := strings.Join(ui.info, "\n")
	assert.Contains(t, all, "Phase: resolved")
	assert.Contains(t, all, "Attempt: 3")
	assert.Contains(t, all, "1. pho")
	assert.Contains(t, all, "2. bun")
	require.Len(t, ui.hints, 1)
	assert.Contains(t, ui.hints[0], "40ms")
}

func TestRunDispatchesUntilQuit(t *testing.T) {
	app, ui, eng := setupApp(t)

	in := make(chan string, 8)
	for _, l := range []string{"list", "down 2", "", "search bánh xèo", "camera", "quit", "list"} {
		in <- l
	}

	done := make(chan struct{})
	go func() {
		app.run(context.Background(), in)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return on quit")
	}
	app.wait()

	assert.Equal(t, []bool{true}, ui.catalog, "input after quit is not handled")
	assert.Equal(t, []int{2}, ui.scrolls)
	assert.Contains(t, strings.Join(ui.info, "\n"), "Bánh xèo")
	assert.Equal(t, []domain.CaptureSource{domain.SourceCamera}, eng.sources)
	assert.Contains(t, ui.chat, speech.LineBye())
}

func TestRunRoutesPromptAnswers(t *testing.T) {
	app, ui, _ := setupApp(t)

	in := make(chan string, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.run(ctx, in)

	answer := make(chan string, 1)
	go func() {
		a, err := app.prompter.Ask(ctx, "Image path (empty to cancel):")
		assert.NoError(t, err)
		answer <- a
	}()

	require.Eventually(t, func() bool {
		app.prompter.mu.Lock()
		defer app.prompter.mu.Unlock()
		return app.prompter.pending != nil
	}, 2*time.Second, 5*time.Millisecond)

	// "quit" is an answer here, not a command.
	in <- "quit"
	select {
	case a := <-answer:
		assert.Equal(t, "quit", a)
	case <-time.After(2 * time.Second):
		t.Fatal("prompt not answered")
	}
	assert.NotContains(t, ui.chat, speech.LineBye())
}

func TestPrompter(t *testing.T) {
	ui := &fakeScreen{}
	p := newPrompter(ui)

	assert.False(t, p.route("stray"))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := p.Ask(ctx, "?")
		errc <- err
	}()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.pending != nil
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, p.route("late"), "a cancelled question no longer takes input")

	ui.mu.Lock()
	defer ui.mu.Unlock()
	assert.Equal(t, []string{pathPrompt, ""}, ui.prompts)
}
