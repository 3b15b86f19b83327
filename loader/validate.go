package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/nathoo/quantumroom/engine/score"
	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Unwrap lets callers test for state.ErrInvalidLevelData.
func (e *ValidationError) Unwrap() error {
	return state.ErrInvalidLevelData
}

var validResults = map[types.ResultKind]bool{
	types.ResultSuccess: true,
	types.ResultPartial: true,
	types.ResultFailure: true,
}

var validActions = map[types.NextAction]bool{
	types.ActionAdvance:  true,
	types.ActionRetry:    true,
	types.ActionContinue: true,
}

var knownCorrelations = map[types.Correlation]bool{
	types.CorrelationAnti:        true,
	types.CorrelationPositive:    true,
	types.CorrelationNegative:    true,
	types.CorrelationNeutral:     true,
	types.CorrelationThreeWay:    true,
	types.CorrelationBellState:   true,
	types.CorrelationMacroscopic: true,
}

const probabilityTolerance = 1e-9

// validate checks the compiled catalog and merges in any problems found
// during compilation. Warnings are logged; errors are returned.
func validate(cat *state.Catalog, ve *ValidationError, log *slog.Logger) error {
	if ve == nil {
		ve = &ValidationError{}
	}

	if cat.Game.Title == "" {
		ve.Errors = append(ve.Errors, "Game.Title is required")
	}
	if cat.Len() == 0 {
		ve.Errors = append(ve.Errors, "no levels defined")
	}

	keys := map[string]bool{}
	numbers := map[int]string{}
	for _, lvl := range cat.Levels {
		if keys[lvl.Key] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate level key %q", lvl.Key))
		}
		keys[lvl.Key] = true
		if prev, ok := numbers[lvl.Number]; ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"levels %q and %q share number %d", prev, lvl.Key, lvl.Number))
		}
		numbers[lvl.Number] = lvl.Key

		validateLevel(lvl, ve)
	}

	for _, w := range ve.Warnings {
		log.Warn("level content", "warning", w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLevel(lvl types.Level, ve *ValidationError) {
	name := fmt.Sprintf("level %q", lvl.Key)

	var le *state.LevelError
	if err := state.ValidateLevel(lvl); errors.As(err, &le) {
		for _, p := range le.Problems {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %s", name, p))
		}
	}

	if lvl.DecoherenceTime <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"%s: decoherence time %d must be positive", name, lvl.DecoherenceTime))
	}

	ids := map[string]bool{}
	for i, ch := range lvl.Choices {
		if ch.ID == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: choice %d has no id", name, i))
		} else if ids[ch.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: duplicate choice id %q", name, ch.ID))
		}
		ids[ch.ID] = true

		if ch.Barrier != nil && ch.Barrier.Width <= 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: choice %q barrier width must be positive", name, ch.ID))
		}

		total := 0.0
		for j, o := range ch.Outcomes {
			total += o.Probability
			if !validActions[o.NextAction] {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s: choice %q outcome %d has unknown next action %q", name, ch.ID, j, o.NextAction))
			}
			if !validResults[o.Result] {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"%s: choice %q outcome %d has unknown result %q (scores 0)", name, ch.ID, j, o.Result))
			}
			if o.Bonus != "" && !score.Known(o.Bonus) {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"%s: choice %q outcome %d bonus %q has no title", name, ch.ID, j, o.Bonus))
			}
		}
		if len(ch.Outcomes) > 0 && math.Abs(total-1) > probabilityTolerance {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"%s: choice %q outcome probabilities sum to %.3f", name, ch.ID, total))
		}
	}

	for i, link := range lvl.Entanglements {
		if !knownCorrelations[link.Correlation] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"%s: entanglement %d has unknown correlation %q", name, i, link.Correlation))
		}
	}
}
