// Package effects implements centralized session mutation via the Apply function.
// Every effect type is one atomic operation. No scoring policy lives here;
// the orchestrator decides the amounts.
package effects

import (
	"fmt"

	"github.com/nathoo/quantumroom/engine/events"
	"github.com/nathoo/quantumroom/engine/score"
	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/types"
)

// Effect type names.
const (
	Say              = "say"
	AddScore         = "add_score"
	AwardAchievement = "award_achievement"
	TimeBonus        = "time_bonus"
	SetQuantumState  = "set_quantum_state"
	Stop             = "stop"
)

// Apply applies a list of effects to the session, mutating it.
// Returns events emitted and output text collected.
func Apply(s *types.Session, effects []types.Effect) ([]types.Event, []string) {
	var evts []types.Event
	var output []string

	for _, eff := range effects {
		switch eff.Type {
		case Say:
			text, _ := eff.Params["text"].(string)
			output = append(output, text)

		case AddScore:
			points := toInt(eff.Params["points"])
			s.Score += points
			if s.Score < 0 {
				s.Score = 0
			}
			if reason, _ := eff.Params["reason"].(string); reason != "" && points != 0 {
				output = append(output, fmt.Sprintf("+%d points (%s)", points, reason))
			}

		case AwardAchievement:
			tag, _ := eff.Params["tag"].(string)
			if tag == "" || state.HasAchievement(s, tag) {
				continue
			}
			points := toInt(eff.Params["points"])
			s.Achievements = append(s.Achievements, tag)
			s.Score += points
			title := score.Title(tag)
			output = append(output, fmt.Sprintf("Achievement unlocked: %s (+%d)", title, points))
			evts = append(evts, types.Event{
				Type: events.AchievementUnlocked,
				Data: map[string]any{"tag": tag, "title": title, "points": points},
			})

		case TimeBonus:
			seconds := toInt(eff.Params["seconds"])
			s.TimeRemaining += seconds
			if s.TimeRemaining < 0 {
				s.TimeRemaining = 0
			}
			if seconds > 0 {
				output = append(output, fmt.Sprintf("+%d seconds of coherence", seconds))
			}

		case SetQuantumState:
			qs, _ := eff.Params["state"].(types.QuantumState)
			if raw, ok := eff.Params["state"].(string); ok {
				qs = types.QuantumState(raw)
			}
			if qs == "" || qs == s.QuantumState {
				continue
			}
			s.QuantumState = qs
			if qs == types.StateDecoherent {
				evts = append(evts, types.Event{
					Type: events.Decoherence,
					Data: map[string]any{"level": s.LevelIndex},
				})
			}

		case Stop:
			return evts, output

		default:
			// Unknown effect type: ignore silently.
		}
	}

	return evts, output
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
