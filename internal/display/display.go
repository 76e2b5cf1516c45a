// Package display draws monan's terminal: a status bar, the scrolling dish
// catalog, a detail panel and the command prompt. Output from other
// goroutines goes through Program.Println so it lands above the live area
// instead of tearing it.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/scroll"
)

// Palette. Warm broth tones on a charcoal bar.
const (
	colBar    = lipgloss.Color("#292524")
	colBarFg  = lipgloss.Color("#a8a29e")
	colRule   = lipgloss.Color("#57534e")
	colMuted  = lipgloss.Color("#78716c")
	colText   = lipgloss.Color("#e7e5e4")
	colHerb   = lipgloss.Color("#bef264")
	colChili  = lipgloss.Color("#f87171")
	colBroth  = lipgloss.Color("#fcd34d")
	colLime   = lipgloss.Color("#fde68a")
	colSteam  = lipgloss.Color("#a5b4fc")
	colPrompt = lipgloss.Color("#d6d3d1")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

var (
	barStyle   = lipgloss.NewStyle().Background(colBar).Foreground(colBarFg)
	busyStyle  = fg(colBroth)
	failStyle  = fg(colChili)
	okStyle    = fg(colHerb)
	ruleStyle  = fg(colRule)
	titleStyle = fg(colLime).Bold(true)

	// BannerStyle colours the startup art.
	BannerStyle = fg(colBroth)

	chatStyle   = fg(colSteam)
	infoStyle   = fg(colText)
	hintStyle   = fg(colMuted)
	urgentStyle = fg(colChili).Bold(true)
	echoStyle   = fg(colBarFg)
	promptStyle = fg(colPrompt)
)

const defaultPrompt = "monan> "

// Status is what the status bar shows.
type Status struct {
	ModelReady bool
	Gateway    string
	Phase      domain.Phase
	Dish       string // resolved dish name, if any
	Dishes     int
}

// StatusFunc is polled on every tick.
type StatusFunc func() Status

// Config wires the UI to the rest of the app.
type Config struct {
	Status  StatusFunc
	Entries []ListEntry
	Images  domain.ImageResolver
	// OnClose runs when the user closes the detail modal from the
	// keyboard. It runs outside the event loop.
	OnClose func(Detail)
}

// UI owns the Bubble Tea program. Build it with [NewUI] and block in
// [UI.Run]; once [UI.WaitReady] returns, any goroutine may print, drive
// the panels or read [UI.InputChan].
type UI struct {
	cfg     Config
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	stopped atomic.Bool
}

func NewUI(cfg Config) *UI {
	if cfg.Status == nil {
		cfg.Status = func() Status { return Status{} }
	}
	return &UI{
		cfg:     cfg,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// live reports whether the event loop is accepting messages.
func (u *UI) live() bool { return u.program != nil && !u.stopped.Load() }

// Println writes above the prompt, or to stdout before Run and after exit.
func (u *UI) Println(a ...interface{}) {
	if !u.live() {
		fmt.Println(a...)
		return
	}
	u.program.Println(a...)
}

func (u *UI) Printf(format string, a ...interface{}) {
	if !u.live() {
		fmt.Printf(format+"\n", a...)
		return
	}
	u.program.Printf(format, a...)
}

// InputChan yields each submitted line.
func (u *UI) InputChan() <-chan string { return u.inputCh }

func (u *UI) emit(style lipgloss.Style, text string) { u.Println(style.Render("  " + text)) }

func (u *UI) PrintChat(text string)   { u.emit(chatStyle, text) }
func (u *UI) PrintInfo(text string)   { u.emit(infoStyle, text) }
func (u *UI) PrintHint(text string)   { u.emit(hintStyle, text) }
func (u *UI) PrintUrgent(text string) { u.emit(urgentStyle, text) }

// PrintUserInput leaves the submitted command in the scrollback.
func (u *UI) PrintUserInput(prompt, text string) {
	u.Println(promptStyle.Render(strings.TrimSpace(prompt)) + " " + echoStyle.Render(text))
}

type (
	catalogMsg struct{ visible bool }
	scrollMsg  struct{ items int }
	detailMsg  struct{ detail *Detail }
	promptMsg  struct{ prompt string }
	refreshMsg struct{}
)

// ShowCatalog shows or hides the catalog panel.
func (u *UI) ShowCatalog(visible bool) { u.send(catalogMsg{visible}) }

// ScrollItems scrolls the catalog by whole entries (negative is up).
func (u *UI) ScrollItems(n int) { u.send(scrollMsg{n}) }

// ShowDetail opens the detail modal; nil closes it.
func (u *UI) ShowDetail(d *Detail) { u.send(detailMsg{d}) }

// SetPrompt changes the prompt label; empty restores the default.
func (u *UI) SetPrompt(p string) { u.send(promptMsg{p}) }

// Refresh redraws the status bar now instead of at the next tick.
func (u *UI) Refresh() { u.send(refreshMsg{}) }

func (u *UI) send(msg tea.Msg) {
	if u.live() {
		u.program.Send(msg)
	}
}

func (u *UI) WaitReady() { <-u.readyCh }

func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan closes once Run has returned.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run blocks in the event loop. Mouse reporting is on so the wheel
// scrolls the catalog.
func (u *UI) Run() error {
	m := newModel(u.cfg, u.inputCh, u.readyCh)
	m.echoFn = u.PrintUserInput

	u.program = tea.NewProgram(m, tea.WithMouseCellMotion())
	defer close(u.quitCh)
	_, err := u.program.Run()
	u.stopped.Store(true)
	return err
}

type model struct {
	cfg     Config
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(prompt, text string)

	status      Status
	showCatalog bool
	offset      float64 // scroll offset in list units
	listRows    int
	detail      *Detail
	width       int
}

type tickMsg time.Time

func newModel(cfg Config, inputCh chan<- string, readyCh chan struct{}) model {
	ti := textinput.New()
	// Unstyled prompt text keeps textinput's width math right.
	ti.Prompt = defaultPrompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = echoStyle
	ti.Cursor.Style = fg(colPrompt)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	return model{
		cfg:      cfg,
		input:    ti,
		inputCh:  inputCh,
		readyCh:  readyCh,
		listRows: 12,
		status:   cfg.Status(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if ch != nil {
			close(ch)
		}
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.scrollBy(-rowHeight), nil
		case tea.MouseButtonWheelDown:
			return m.scrollBy(rowHeight), nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - len(m.input.Prompt); w > 0 {
			m.input.Width = w
		}
		// Leave room for the bar, the panel title and the prompt.
		m.listRows = max(rowsPerItem, min(5*rowsPerItem, msg.Height-6))
		m.offset = m.clamp(m.offset)
		return m, nil

	case catalogMsg:
		m.showCatalog = msg.visible
		return m, nil

	case scrollMsg:
		m.showCatalog = true
		return m.scrollBy(float64(msg.items) * itemHeight), nil

	case detailMsg:
		m.detail = msg.detail
		return m, nil

	case promptMsg:
		m.input.Prompt = msg.prompt
		if m.input.Prompt == "" {
			m.input.Prompt = defaultPrompt
		}
		return m, nil

	case refreshMsg:
		m.status = m.cfg.Status()
		return m, nil

	case tickMsg:
		m.status = m.cfg.Status()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// scrollBy moves the catalog. Scrolling only applies while the panel is
// visible and no modal covers it.
func (m model) scrollBy(delta float64) model {
	if !m.showCatalog || m.detail != nil {
		return m
	}
	m.offset = m.clamp(m.offset + delta)
	return m
}

func (m model) clamp(s float64) float64 {
	return scroll.ClampOffset(s, len(m.cfg.Entries), itemHeight, viewportUnits(m.listRows))
}

// handleKey deals with the keys the model owns. Everything else falls
// through to the text input.
func (m model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch k.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit, true
	case tea.KeyEnter:
		next, cmd := m.submit()
		return next, cmd, true
	case tea.KeyEsc:
		next, cmd := m.closeDetail()
		return next, cmd, true
	case tea.KeyUp:
		return m.scrollBy(-rowHeight), nil, true
	case tea.KeyDown:
		return m.scrollBy(rowHeight), nil, true
	case tea.KeyPgUp:
		return m.scrollBy(-viewportUnits(m.listRows)), nil, true
	case tea.KeyPgDown:
		return m.scrollBy(viewportUnits(m.listRows)), nil, true
	}
	return m, nil, false
}

// submit hands the typed line to the app. A blank line is swallowed at
// the main prompt but still answers a question prompt.
func (m model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()
	asking := m.input.Prompt != defaultPrompt
	if strings.TrimSpace(line) == "" {
		if asking {
			m.inputCh <- line
		}
		return m, nil
	}
	m.inputCh <- line
	if m.echoFn == nil {
		return m, nil
	}
	echo, prompt := m.echoFn, m.input.Prompt
	return m, func() tea.Msg {
		echo(prompt, line)
		return nil
	}
}

func (m model) closeDetail() (tea.Model, tea.Cmd) {
	if m.detail == nil {
		m.showCatalog = false
		return m, nil
	}
	closed := *m.detail
	m.detail = nil
	onClose := m.cfg.OnClose
	if onClose == nil {
		return m, nil
	}
	return m, func() tea.Msg {
		onClose(closed)
		return nil
	}
}

func (m model) titleStr() string {
	if m.status.Dish != "" {
		return "Món Ăn: " + m.status.Dish
	}
	return "Món Ăn"
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.renderBar())
	b.WriteByte('\n')

	switch {
	case m.detail != nil:
		b.WriteString(RenderDetail(m.detail.Record, m.cfg.Images, m.panelWidth()))
		b.WriteByte('\n')
	case m.showCatalog:
		b.WriteString(m.renderCatalog())
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) panelWidth() int {
	if m.width <= 0 {
		return 80
	}
	return min(m.width, 100)
}

func (m model) renderCatalog() string {
	n := len(m.cfg.Entries)
	first, last := scroll.VisibleRange(m.offset, viewportUnits(m.listRows), itemHeight, n)
	title := titleStyle.Render("Mục lục") +
		hintStyle.Render(fmt.Sprintf("  %d–%d / %d   ↑↓ PgUp PgDn, esc to hide", min(first+1, n), last, n))
	return title + "\n" + RenderList(m.cfg.Entries, m.offset, m.listRows, m.panelWidth())
}

func (m model) renderBar() string {
	st := m.status
	icon := failStyle.Render("❓")
	if st.ModelReady {
		icon = okStyle.Render("✅")
	}

	parts := []string{"Model Status: " + icon}
	if st.Gateway != "" {
		parts = append(parts, st.Gateway)
	}
	parts = append(parts, phaseLabel(st))
	if st.Dishes > 0 {
		parts = append(parts, fmt.Sprintf("%d dishes", st.Dishes))
	}

	content := " " + strings.Join(parts, ruleStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barStyle.Width(w).Render(content)
}

func phaseLabel(st Status) string {
	switch st.Phase {
	case domain.PhaseAcquiring:
		return busyStyle.Render("preparing image…")
	case domain.PhaseClassifying:
		return busyStyle.Render("classifying…")
	case domain.PhaseResolved:
		return okStyle.Render(st.Dish)
	case domain.PhaseNoMatch:
		return failStyle.Render("no match")
	case domain.PhaseFailed:
		return failStyle.Render("error")
	default:
		return "ready"
	}
}
