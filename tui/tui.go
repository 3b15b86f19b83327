// Package tui provides a Bubble Tea terminal UI for the quantum escape room.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/quantumroom/engine"
	"github.com/nathoo/quantumroom/engine/parser"
	"github.com/nathoo/quantumroom/engine/timer"
	"github.com/nathoo/quantumroom/types"
)

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for the escape room.
type Model struct {
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	// The countdown token with a tick in flight. At most one tick is
	// scheduled per token so a second never counts twice.
	scheduled timer.Token
	inFlight  bool
	interval  time.Duration

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
}

// startMsg starts the game from inside the Update loop.
type startMsg struct{}

// tickMsg is one countdown second for the given token.
type tickMsg struct {
	token timer.Token
}

// gameOutputMsg carries output into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string // output lines
	isSystem bool     // true for meta-command output
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		engine:   eng,
		input:    ti,
		history:  NewHistory(100),
		interval: time.Second,
	}
}

// Run starts the Bubble Tea program. Focus reporting lets the countdown
// pause while the terminal is in the background.
func Run(eng *engine.Engine) error {
	m := New(eng)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}

// Init starts the cursor blinking and asks Update to start the game.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return startMsg{} })
}

// Update handles messages (key presses, window resize, countdown ticks, game output).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case startMsg:
		m = m.start()
		cmd := m.schedule()
		return m, cmd

	case tickMsg:
		return m.handleTick(msg)

	case tea.BlurMsg:
		m.engine.Pause()
		return m, nil

	case tea.FocusMsg:
		if _, ok := m.engine.Resume(); ok {
			cmd := m.schedule()
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// start shows the title and intro and loads the first level.
func (m Model) start() Model {
	g := m.engine.Catalog.Game
	header := g.Title
	if g.Version != "" {
		header += " v" + g.Version
	}
	if g.Author != "" {
		header += " by " + g.Author
	}
	lines := []string{header, ""}
	if g.Intro != "" {
		lines = append(lines, g.Intro, "")
	}

	view, err := m.engine.Start()
	if err != nil {
		return m.appendOutput(gameOutputMsg{lines: []string{err.Error()}, isSystem: true})
	}
	lines = append(lines, m.viewLines(view)...)
	return m.appendOutput(gameOutputMsg{lines: lines})
}

// schedule arms one tick for the running countdown unless one is
// already in flight for it.
func (m *Model) schedule() tea.Cmd {
	tok, ok := m.engine.TimerToken()
	if !ok {
		return nil
	}
	if m.inFlight && tok == m.scheduled {
		return nil
	}
	m.scheduled = tok
	m.inFlight = true
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{token: tok}
	})
}

// handleTick delivers a scheduled second to the engine. Ticks for a
// countdown that has since been canceled, paused or replaced are dropped.
func (m Model) handleTick(msg tickMsg) (tea.Model, tea.Cmd) {
	if msg.token != m.scheduled {
		return m, nil
	}
	m.inFlight = false

	lines, _ := m.tick(msg.token)
	if len(lines) > 0 {
		m = m.appendOutput(gameOutputMsg{lines: lines})
	}
	cmd := m.schedule()
	return m, cmd
}

// tick advances the countdown one second and reports whether the tick
// forced a resolution.
func (m *Model) tick(tok timer.Token) ([]string, bool) {
	report, err := m.engine.Tick(tok)
	if err != nil {
		return []string{"[" + err.Error() + "]"}, false
	}
	if !report.Accepted {
		return nil, false
	}
	var lines []string
	if report.Tick.LowTime {
		lines = append(lines, fmt.Sprintf("[Decoherence warning: %d seconds remain]", report.Tick.Remaining))
	}
	if report.Forced != nil {
		lines = append(lines, m.resolutionLines(*report.Forced)...)
		return lines, true
	}
	return lines, false
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if input == "" {
		return m, nil
	}

	m.history.Push(input)

	// Restart redraws the level, so its output is styled as narrative.
	if input == "/restart" {
		m = m.appendOutput(gameOutputMsg{input: input, lines: m.restart()})
		cmd := m.schedule()
		return m, cmd
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		cmd := m.schedule()
		return m, cmd
	}

	output := m.dispatch(input)
	m = m.appendOutput(gameOutputMsg{input: input, lines: output})
	cmd := m.schedule()
	return m, cmd
}

// dispatch runs a game command and returns its output.
func (m *Model) dispatch(input string) []string {
	intent := parser.Parse(input)

	switch intent.Verb {
	case "choose":
		if intent.Object == "" {
			return []string{"Choose which option?"}
		}
		if idx, ok := parser.Number(intent.Object); ok {
			return m.resolve(idx)
		}
		if idx, ok := m.engine.ChoiceIndex(intent.Object); ok {
			return m.resolve(idx)
		}
		return []string{fmt.Sprintf("There is no choice %q here.", intent.Object)}

	case "next":
		view, err := m.engine.Proceed()
		if err != nil {
			return m.errorLines(err)
		}
		return m.viewLines(view)

	case "look":
		return m.viewLines(m.engine.View())

	case "wait":
		return m.wait(intent.Object)

	case "restart":
		return m.restart()

	case "help":
		return m.cmdHelp()

	case "state":
		return m.cmdState()

	default:
		// A bare choice id selects that choice.
		if idx, ok := m.engine.ChoiceIndex(strings.ToLower(input)); ok {
			return m.resolve(idx)
		}
		return []string{"I don't understand that. Pick a numbered choice, or type help."}
	}
}

func (m *Model) resolve(idx int) []string {
	res, err := m.engine.ResolveChoice(idx)
	if err != nil {
		return m.errorLines(err)
	}
	return m.resolutionLines(res)
}

func (m *Model) restart() []string {
	view, err := m.engine.Restart()
	if err != nil {
		return m.errorLines(err)
	}
	return append([]string{"[Game restarted.]"}, m.viewLines(view)...)
}

// wait spends n seconds (default 1) of coherence at once.
func (m *Model) wait(object string) []string {
	n := 1
	if object != "" {
		v, err := strconv.Atoi(object)
		if err != nil || v <= 0 {
			return []string{"Wait how many seconds?"}
		}
		n = v
	}
	if _, ok := m.engine.TimerToken(); !ok {
		return []string{"The countdown is not running."}
	}

	var lines []string
	for i := 0; i < n; i++ {
		tok, ok := m.engine.TimerToken()
		if !ok {
			break
		}
		out, forced := m.tick(tok)
		lines = append(lines, out...)
		if forced {
			return lines
		}
	}
	return append(lines, fmt.Sprintf("Time passes. %d seconds until decoherence.", m.engine.Session.TimeRemaining))
}

func (m *Model) viewLines(v types.LevelView) []string {
	if v.GameComplete {
		return append(engine.Summary(m.engine.Session), "Type restart to play again, or /quit.")
	}
	return engine.DescribeLevel(v)
}

func (m *Model) resolutionLines(res types.ResolutionResult) []string {
	lines := engine.FormatResolution(res)
	if m.trace {
		lines = append(lines, m.formatTrace(res)...)
	}
	return lines
}

func (m *Model) errorLines(err error) []string {
	switch {
	case errors.Is(err, engine.ErrNotPlaying) && m.engine.Session.Phase == types.PhaseCompleted:
		return []string{"The game is over. Type restart to play again."}
	case errors.Is(err, engine.ErrNotPlaying):
		return []string{"The system has already collapsed. Type next to continue."}
	case errors.Is(err, engine.ErrNoOutcome):
		return []string{"Make a choice first."}
	default:
		return []string{"[" + err.Error() + "]"}
	}
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{
			text: "> " + msg.input, isInput: true,
		})
	}

	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()

	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries. Leading indentation is kept on the first line.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	indent := text[:len(text)-len(strings.TrimLeft(text, " "))]

	var b strings.Builder
	b.WriteString(indent)
	lineLen := len(indent)
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
		case lineLen+1+len(word) > width:
			b.WriteString("\n")
			lineLen = 0
		default:
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

// View renders the full TUI layout: viewport + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Show session state",
		"  /restart      Start over from the first level",
		"  /trace        Toggle debug trace output",
		"",
		"Game commands:",
		"  <n> or choose <n>     Collapse choice n",
		"  <choice-id>           Collapse the choice with that id",
		"  next (n)              Continue after an outcome",
		"  look (l)              Describe the level again",
		"  wait [n] (z)          Let n seconds of coherence pass",
		"",
		"The countdown pauses while the terminal is unfocused.",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func (m *Model) cmdState() []string {
	s := m.engine.Session
	output := engine.StateLines(s, m.engine.Catalog.Len())
	output = append(output, fmt.Sprintf("Countdown: %s", m.engine.TimerStatus()))
	if len(s.Achievements) > 0 {
		output = append(output, fmt.Sprintf("Achievements: %v", s.Achievements))
	}
	return output
}

func (m *Model) formatTrace(res types.ResolutionResult) []string {
	lines := []string{fmt.Sprintf("[trace] Choice %s outcome %d (%s)",
		keyDisplayName(res.ChoiceID), res.OutcomeIndex, res.Outcome.Result)}
	if len(res.Effects) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Effects: %d", len(res.Effects)))
		for _, e := range res.Effects {
			lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Params))
		}
	}
	if len(res.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(res.Events)))
		for _, e := range res.Events {
			lines = append(lines, fmt.Sprintf("[trace]   %s", e.Type))
		}
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
