// Package state holds the immutable level catalog and the helpers that
// create, reset, and query the mutable play session.
package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/quantumroom/types"
)

// ErrInvalidLevelData marks content that cannot be played: a level with no
// choices, a choice with no outcomes, or a malformed entanglement link.
var ErrInvalidLevelData = errors.New("invalid level data")

// LevelError lists every problem found in one level.
type LevelError struct {
	Level    string
	Problems []string
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("level %s: %s", e.Level, strings.Join(e.Problems, "; "))
}

func (e *LevelError) Unwrap() error {
	return ErrInvalidLevelData
}

// Catalog holds the immutable game definitions, levels in play order.
type Catalog struct {
	Game   types.GameDef
	Levels []types.Level
}

// Len returns the number of levels.
func (c *Catalog) Len() int {
	return len(c.Levels)
}

// Level returns the level at index and whether it exists.
func (c *Catalog) Level(index int) (types.Level, bool) {
	if index < 0 || index >= len(c.Levels) {
		return types.Level{}, false
	}
	return c.Levels[index], true
}

// ValidateLevel checks the structural invariants the engine relies on.
// It returns a *LevelError wrapping ErrInvalidLevelData, or nil.
func ValidateLevel(lvl types.Level) error {
	var problems []string

	if len(lvl.Choices) == 0 {
		problems = append(problems, "no choices")
	}
	for i, ch := range lvl.Choices {
		if len(ch.Outcomes) == 0 {
			problems = append(problems, fmt.Sprintf("choice %d (%s) has no outcomes", i, ch.ID))
		}
		for j, o := range ch.Outcomes {
			if o.Probability < 0 || o.Probability > 1 {
				problems = append(problems, fmt.Sprintf(
					"choice %d (%s) outcome %d probability %v outside [0,1]", i, ch.ID, j, o.Probability))
			}
		}
		for _, p := range ch.Entangled {
			if p < 0 || p >= len(lvl.Choices) {
				problems = append(problems, fmt.Sprintf(
					"choice %d (%s) entangled index %d out of range", i, ch.ID, p))
			}
		}
	}
	for i, link := range lvl.Entanglements {
		if len(link.Participants) < 2 {
			problems = append(problems, fmt.Sprintf(
				"entanglement %d has %d participant(s), need at least 2", i, len(link.Participants)))
		}
		for _, p := range link.Participants {
			if p < 0 || p >= len(lvl.Choices) {
				problems = append(problems, fmt.Sprintf(
					"entanglement %d participant %d out of range", i, p))
			}
		}
		if link.Strength < 0 || link.Strength > 1 {
			problems = append(problems, fmt.Sprintf(
				"entanglement %d strength %v outside [0,1]", i, link.Strength))
		}
	}

	if len(problems) > 0 {
		return &LevelError{Level: levelName(lvl), Problems: problems}
	}
	return nil
}

func levelName(lvl types.Level) string {
	if lvl.Key != "" {
		return fmt.Sprintf("%d (%s)", lvl.Number, lvl.Key)
	}
	return fmt.Sprintf("%d", lvl.Number)
}

// NewSession creates a fresh session sitting at the menu.
func NewSession() *types.Session {
	return &types.Session{
		Achievements: []string{},
		QuantumState: types.StateSuperposition,
		Phase:        types.PhaseMenu,
	}
}

// ResetSession clears score, achievements, and progress in place.
func ResetSession(s *types.Session) {
	*s = *NewSession()
}

// HasAchievement returns true if the tag is already unlocked.
func HasAchievement(s *types.Session, tag string) bool {
	for _, a := range s.Achievements {
		if a == tag {
			return true
		}
	}
	return false
}

// StateDescription returns the flavor text for a quantum state tag.
func StateDescription(qs types.QuantumState) string {
	switch qs {
	case types.StateSuperposition:
		return "All possibilities exist simultaneously until observed"
	case types.StateCollapsed:
		return "Wave function has collapsed to a definite state"
	case types.StateDecoherent:
		return "Quantum coherence has been lost to the environment"
	case "entangled":
		return "Particles are quantum mechanically correlated"
	default:
		return "Unknown quantum state"
	}
}
