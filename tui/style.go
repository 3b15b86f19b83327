package tui

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleStatusLow = lipgloss.NewStyle().
			Background(lipgloss.Color("124")).
			Foreground(lipgloss.Color("231")).
			Bold(true)

	styleStatusPaused = lipgloss.NewStyle().
				Background(lipgloss.Color("238")).
				Foreground(lipgloss.Color("250")).
				Italic(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	styleChoice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117"))

	styleEntangle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("213"))

	styleScore = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	styleAchievement = lipgloss.NewStyle().
				Foreground(lipgloss.Color("220")).
				Bold(true)

	styleWarning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindHeader
	kindChoice
	kindEntangle
	kindScore
	kindAchievement
	kindWarning
	kindSystem
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[Decoherence"):
		return kindWarning
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case strings.HasPrefix(line, "Level "), strings.HasPrefix(line, "Quantum Escape Complete"):
		return kindHeader
	case strings.HasPrefix(line, "Decoherence!"):
		return kindWarning
	case strings.HasPrefix(line, "Achievement unlocked"):
		return kindAchievement
	case strings.HasPrefix(line, "Quantum Entanglement Effects"),
		strings.HasPrefix(line, "  * "):
		return kindEntangle
	case strings.HasPrefix(line, "+"):
		return kindScore
	case isChoiceLine(line):
		return kindChoice
	default:
		return kindNarrative
	}
}

// isChoiceLine reports whether line is a numbered choice such as "2. Wait".
func isChoiceLine(line string) bool {
	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	return i > 0 && strings.HasPrefix(line[i:], ". ")
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindHeader:
		return styleHeader.Render(line)
	case kindChoice:
		return styleChoice.Render(line)
	case kindEntangle:
		return styleEntangle.Render(line)
	case kindScore:
		return styleScore.Render(line)
	case kindAchievement:
		return styleAchievement.Render(line)
	case kindWarning:
		return styleWarning.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
