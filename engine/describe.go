package engine

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nathoo/quantumroom/engine/score"
	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/types"
)

var physicsLabels = map[string]string{
	"bellInequality":    "Bell Inequality",
	"quantumPrediction": "Quantum Bound",
	"waveFunction":      "Wave Function",
	"probability":       "Probability",
	"decoherence":       "Decoherence Time",
	"tunneling":         "Tunneling Probability",
	"interference":      "Interference Amplitude",
}

// PhysicsLabel returns the caption label for a physics key.
func PhysicsLabel(key string) string {
	if l, ok := physicsLabels[key]; ok {
		return l
	}
	if key == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(key)
	return string(unicode.ToUpper(r)) + key[size:]
}

// DescribeLevel produces the standard level description output.
func DescribeLevel(v types.LevelView) []string {
	if v.GameComplete {
		return []string{"All levels complete."}
	}

	var output []string
	output = append(output, fmt.Sprintf("Level %d of %d: %s", v.Index+1, v.Total, v.Title))
	if v.Concept != "" || v.Difficulty != "" {
		output = append(output, fmt.Sprintf("Concept: %s | Difficulty: %s", v.Concept, v.Difficulty))
	}
	if v.Scenario != "" {
		output = append(output, "", v.Scenario)
	}

	if v.Tutorial.Concept != "" {
		output = append(output, "", v.Tutorial.Concept+": "+v.Tutorial.Explanation)
	}
	if len(v.Physics) > 0 {
		keys := make([]string, 0, len(v.Physics))
		for k := range v.Physics {
			keys = append(keys, k)
		}
		sort.Strings(keys) // deterministic order
		for _, k := range keys {
			if k == "explanation" {
				continue
			}
			output = append(output, fmt.Sprintf("  %s: %s", PhysicsLabel(k), v.Physics[k]))
		}
		if note, ok := v.Physics["explanation"]; ok {
			output = append(output, "  "+note)
		}
	}

	output = append(output, "")
	for _, ch := range v.Choices {
		line := fmt.Sprintf("%d. %s", ch.Index+1, ch.Text)
		var tags []string
		if ch.Entangled {
			tags = append(tags, "entangled")
		}
		if ch.Tunneling {
			tags = append(tags, "tunneling")
		}
		if len(tags) > 0 {
			line += " [" + strings.Join(tags, ", ") + "]"
		}
		output = append(output, line)
		if ch.Description != "" {
			output = append(output, "   "+ch.Description)
		}
	}
	if v.Entanglements > 0 {
		output = append(output, fmt.Sprintf("%d entanglement link(s) active.", v.Entanglements))
	}
	output = append(output, fmt.Sprintf("Decoherence in %d seconds.", v.DecoherenceTime))
	return output
}

// FormatResolution produces the outcome text for a resolved choice.
func FormatResolution(res types.ResolutionResult) []string {
	var output []string
	if res.Forced {
		output = append(output, "Decoherence! The environment measured the system for you.")
	}
	output = append(output, res.OutcomeText)

	if len(res.EntanglementEffects) > 0 {
		output = append(output, "", "Quantum Entanglement Effects:")
		for _, eff := range res.EntanglementEffects {
			output = append(output, "  * "+eff.Description)
		}
	}

	if len(res.Output) > 0 {
		output = append(output, "")
		output = append(output, res.Output...)
	}

	output = append(output, "", NextPrompt(res.NextAction))
	return output
}

// NextPrompt returns the label for the action that follows an outcome.
func NextPrompt(a types.NextAction) string {
	switch a {
	case types.ActionAdvance:
		return "Continue to Next Level"
	case types.ActionContinue:
		return "Make Another Choice"
	default:
		return "Try Again"
	}
}

// Summary produces the end-of-game report.
func Summary(s *types.Session) []string {
	output := []string{
		"Quantum Escape Complete!",
		fmt.Sprintf("Final score: %d", s.Score),
	}
	if len(s.Achievements) == 0 {
		output = append(output, "Achievements: none")
		return output
	}
	output = append(output, "Achievements:")
	for _, tag := range s.Achievements {
		output = append(output, "  "+score.Title(tag))
	}
	return output
}

// Status produces the one-line session status.
func Status(s *types.Session, total int) string {
	level := s.LevelIndex + 1
	if level > total {
		level = total
	}
	return fmt.Sprintf("Level %d/%d | Time %ds | Score %d | Achievements %d | %s",
		level, total, s.TimeRemaining, s.Score, len(s.Achievements), s.QuantumState)
}

// StateLines produces the verbose session state dump.
func StateLines(s *types.Session, total int) []string {
	lines := []string{
		Status(s, total),
		fmt.Sprintf("Phase: %s | Round: %d | Resolutions: %d", s.Phase, s.Round, s.Resolutions),
		fmt.Sprintf("Quantum state: %s (%s)", s.QuantumState, state.StateDescription(s.QuantumState)),
	}
	if s.Pending != "" {
		lines = append(lines, "Pending: "+string(s.Pending))
	}
	return lines
}
