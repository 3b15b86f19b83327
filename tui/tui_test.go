package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/quantumroom/engine"
	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/engine/timer"
	"github.com/nathoo/quantumroom/types"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func TestKeyDisplayName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"door", "Door"},
		{"quantum-door", "Quantum Door"},
		{"bell_test", "Bell Test"},
		{"schrodinger-lab", "Schrodinger Lab"},
		{"--odd--key", "Odd Key"},
		{"élan-vital", "Élan Vital"},
		{"", ""},
	}
	for _, tt := range tests {
		got := keyDisplayName(tt.key)
		if got != tt.want {
			t.Errorf("keyDisplayName(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"Level 2 of 7: The Entangled Switches", kindHeader},
		{"Quantum Escape Complete!", kindHeader},
		{"1. Observe the door directly", kindChoice},
		{"12. Twelfth option [entangled]", kindChoice},
		{"Quantum Entanglement Effects:", kindEntangle},
		{"  * Correlated quantum states: choices affect each other positively", kindEntangle},
		{"+50 points (success)", kindScore},
		{"+15 seconds of coherence", kindScore},
		{"Achievement unlocked: Quantum Master! (+100)", kindAchievement},
		{"Decoherence! The environment measured the system for you.", kindWarning},
		{"[Decoherence warning: 9 seconds remain]", kindWarning},
		{"[Game restarted.]", kindSystem},
		{"[trace] Effects: 2", kindTrace},
		{"The door collapses to an OPEN state!", kindNarrative},
		{"3 entanglement link(s) active.", kindNarrative},
		{"", kindNarrative},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"Before you stands a mysterious quantum door, shimmering.", 30,
			"Before you stands a mysterious\nquantum door, shimmering."},
		{"", 80, ""},
		{"a b c d e", 3, "a b\nc d\ne"},
		{"   Look directly at the door", 16, "   Look directly\nat the door"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("1")
	h.Push("next")
	h.Push("choose observe")

	for _, want := range []string{"choose observe", "next", "1", "1"} {
		got, ok := h.Prev()
		if !ok || got != want {
			t.Errorf("Prev() = %q (ok=%v), want %q", got, ok, want)
		}
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("next")

	h.Prev() // "next"
	h.Prev() // "look"

	next, ok := h.Next()
	if !ok || next != "next" {
		t.Errorf("expected 'next', got %q (ok=%v)", next, ok)
	}
	if _, ok = h.Next(); ok {
		t.Error("expected false when past newest entry")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_LimitAndDuplicates(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("b") // skipped
	h.Push("c") // "a" evicted

	if len(h.entries) != 2 {
		t.Fatalf("entries = %v", h.entries)
	}
	for _, want := range []string{"c", "b", "b"} {
		if got, _ := h.Prev(); got != want {
			t.Errorf("Prev() = %q, want %q", got, want)
		}
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("next")

	h.Prev()
	h.Prev()
	h.ResetCursor()

	if prev, ok := h.Prev(); !ok || prev != "next" {
		t.Errorf("expected 'next' after reset, got %q", prev)
	}
}

// testCatalog returns a one-level game with a short countdown.
func testCatalog() *state.Catalog {
	return &state.Catalog{
		Game: types.GameDef{Title: "Test Lab", Version: "1.0", Author: "Test", Intro: "Welcome to the test."},
		Levels: []types.Level{
			{
				Number:          1,
				Key:             "door",
				Title:           "Door",
				DecoherenceTime: 3,
				Scenario:        "A door shimmers.",
				Choices: []types.Choice{
					{
						ID:   "open",
						Text: "Open it",
						Outcomes: []types.Outcome{
							{Probability: 1, Result: types.ResultSuccess, Text: "The door swings open.", NextAction: types.ActionAdvance, Bonus: "quantum-master"},
						},
					},
					{
						ID:   "linger",
						Text: "Linger",
						Outcomes: []types.Outcome{
							{Probability: 1, Result: types.ResultFailure, Text: "You fade.", NextAction: types.ActionRetry},
						},
					},
				},
			},
		},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	eng := engine.New(testCatalog(), engine.Options{Source: fixedSource(0.9)})
	m := New(eng)
	updated, cmd := m.Update(startMsg{})
	if cmd == nil {
		t.Fatal("start should schedule a tick")
	}
	return updated.(Model)
}

func joined(m Model) string {
	var b strings.Builder
	for _, rl := range m.rawLines {
		b.WriteString(rl.text)
		b.WriteString("\n")
	}
	return b.String()
}

func submit(t *testing.T, m Model, input string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(input)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestStart(t *testing.T) {
	m := newTestModel(t)
	out := joined(m)
	for _, want := range []string{"Test Lab v1.0 by Test", "Welcome to the test.", "Level 1 of 1: Door", "1. Open it"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if m.engine.Session.Phase != types.PhasePlaying {
		t.Errorf("phase = %s", m.engine.Session.Phase)
	}
	if !m.inFlight {
		t.Error("expected a tick in flight")
	}
}

func TestTicks_ForceResolution(t *testing.T) {
	m := newTestModel(t)
	tok := m.scheduled

	for i := 0; i < 3; i++ {
		updated, _ := m.Update(tickMsg{token: tok})
		m = updated.(Model)
	}

	out := joined(m)
	if !strings.Contains(out, "[Decoherence warning: 2 seconds remain]") {
		t.Errorf("expected low-time warning in:\n%s", out)
	}
	// fixedSource(0.9) over two choices forces the second.
	if !strings.Contains(out, "Decoherence! The environment measured") || !strings.Contains(out, "You fade.") {
		t.Errorf("expected forced resolution in:\n%s", out)
	}
	if m.engine.Session.Phase != types.PhaseOutcome {
		t.Errorf("phase = %s", m.engine.Session.Phase)
	}
	if m.inFlight {
		t.Error("no tick should be scheduled after the countdown ends")
	}
}

func TestTicks_StaleTokenDropped(t *testing.T) {
	m := newTestModel(t)
	stale := m.scheduled

	m, _ = submit(t, m, "1")
	updated, cmd := m.Update(tickMsg{token: stale})
	m = updated.(Model)
	if cmd != nil {
		t.Error("stale tick should not reschedule")
	}
	if strings.Contains(joined(m), "Decoherence!") {
		t.Error("stale tick forced a resolution")
	}
}

func TestTicks_DuplicateScheduleSuppressed(t *testing.T) {
	m := newTestModel(t)
	if cmd := m.schedule(); cmd != nil {
		t.Error("second schedule for the same countdown should be a no-op")
	}
}

func TestFocus_PausesAndResumes(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(tea.BlurMsg{})
	m = updated.(Model)
	if m.engine.TimerStatus() != timer.Paused {
		t.Fatalf("status = %s, want paused", m.engine.TimerStatus())
	}

	// The tick already in flight is rejected while paused.
	updated, cmd := m.Update(tickMsg{token: m.scheduled})
	m = updated.(Model)
	if cmd != nil {
		t.Error("paused countdown should not reschedule")
	}
	if m.engine.Session.TimeRemaining != 3 {
		t.Errorf("remaining = %d, want 3", m.engine.Session.TimeRemaining)
	}

	updated, cmd = m.Update(tea.FocusMsg{})
	m = updated.(Model)
	if m.engine.TimerStatus() != timer.Running {
		t.Fatalf("status = %s, want running", m.engine.TimerStatus())
	}
	if cmd == nil {
		t.Error("resume should schedule a tick")
	}
}

func TestEnter_ChooseAndProceed(t *testing.T) {
	m := newTestModel(t)

	m, _ = submit(t, m, "open")
	out := joined(m)
	for _, want := range []string{"> open", "The door swings open.", "Achievement unlocked: Quantum Master! (+100)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	m, _ = submit(t, m, "next")
	if !strings.Contains(joined(m), "Quantum Escape Complete!") {
		t.Errorf("expected summary in:\n%s", joined(m))
	}
	if m.engine.Session.Phase != types.PhaseCompleted {
		t.Errorf("phase = %s", m.engine.Session.Phase)
	}
}

func TestEnter_Wait(t *testing.T) {
	m := newTestModel(t)
	m, _ = submit(t, m, "wait")
	if !strings.Contains(joined(m), "2 seconds until decoherence") {
		t.Errorf("got:\n%s", joined(m))
	}
}

func TestEnter_Restart(t *testing.T) {
	m := newTestModel(t)
	m, _ = submit(t, m, "1")
	m, cmd := submit(t, m, "/restart")

	if got := strings.Count(joined(m), "Level 1 of 1: Door"); got != 2 {
		t.Errorf("level shown %d times, want 2", got)
	}
	if m.engine.Session.Score != 0 {
		t.Errorf("score = %d after restart", m.engine.Session.Score)
	}
	if cmd == nil {
		t.Error("restart should schedule a tick for the new countdown")
	}
}

func TestStatusBar(t *testing.T) {
	m := newTestModel(t)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = updated.(Model)

	bar := m.renderStatusBar()
	if !strings.Contains(bar, "Level 1/1: Door") || !strings.Contains(bar, "superposition 3s") {
		t.Errorf("status bar = %q", bar)
	}

	m.engine.Pause()
	if bar := m.renderStatusBar(); !strings.Contains(bar, "Paused 3s") {
		t.Errorf("paused status bar = %q", bar)
	}
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newTestModel(t)

	if _, quit := m.handleMeta("/quit"); !quit {
		t.Error("expected quit=true for /quit")
	}
	if _, quit := m.handleMeta("/exit"); !quit {
		t.Error("expected quit=true for /exit")
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}
	all := strings.Join(output, "\n")
	for _, expected := range []string{"/quit", "/restart", "next (n)", "wait [n]"} {
		if !strings.Contains(all, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := newTestModel(t)

	output, _ := m.handleMeta("/trace")
	if !m.trace || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected trace enabled, got %v", output)
	}
	lines := m.resolve(0)
	if !strings.Contains(strings.Join(lines, "\n"), "[trace] Choice Open outcome 0 (success)") {
		t.Errorf("expected trace lines, got %v", lines)
	}

	output, _ = m.handleMeta("/trace")
	if m.trace || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected trace disabled, got %v", output)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newTestModel(t)

	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := newTestModel(t)

	output, _ := m.handleMeta("/state")
	all := strings.Join(output, "\n")
	if !strings.Contains(all, "Phase: playing") {
		t.Errorf("expected phase in state output:\n%s", all)
	}
	if !strings.Contains(all, "Countdown: running") {
		t.Errorf("expected countdown status in state output:\n%s", all)
	}
}
