package tui

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/quantumroom/engine/timer"
	"github.com/nathoo/quantumroom/types"
)

// keyDisplayName derives a human-readable name from a level or choice key.
// "quantum-door" -> "Quantum Door", "bell_test" -> "Bell Test".
func keyDisplayName(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// renderStatusBar produces a full-width status line showing the level,
// score, achievements and the decoherence countdown. The bar turns red
// once the countdown is in its warning window.
func (m Model) renderStatusBar() string {
	s := m.engine.Session
	total := m.engine.Catalog.Len()

	var left string
	switch s.Phase {
	case types.PhaseCompleted:
		left = fmt.Sprintf(" Complete | Score %d", s.Score)
	case types.PhaseMenu:
		left = " " + m.engine.Catalog.Game.Title
	default:
		lvl := m.engine.Level()
		name := lvl.Title
		if name == "" {
			name = keyDisplayName(lvl.Key)
		}
		left = fmt.Sprintf(" Level %d/%d: %s | Score %d", s.LevelIndex+1, total, name, s.Score)
	}
	if n := len(s.Achievements); n > 0 {
		left += fmt.Sprintf(" | Achievements %d", n)
	}

	style := styleStatusBar
	var right string
	switch {
	case s.Phase == types.PhasePlaying && m.engine.TimerStatus() == timer.Paused:
		right = fmt.Sprintf("Paused %ds ", s.TimeRemaining)
		style = styleStatusPaused
	case s.Phase == types.PhasePlaying:
		right = fmt.Sprintf("%s %ds ", s.QuantumState, s.TimeRemaining)
		if m.engine.LowTime() {
			style = styleStatusLow
		}
	case s.Phase == types.PhaseOutcome:
		right = fmt.Sprintf("%s | %s ", s.QuantumState, nextHint(s.Pending))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return style.Width(m.width).Render(bar)
}

func nextHint(a types.NextAction) string {
	switch a {
	case types.ActionAdvance:
		return "next: advance"
	case types.ActionContinue:
		return "next: choose again"
	default:
		return "next: retry"
	}
}
