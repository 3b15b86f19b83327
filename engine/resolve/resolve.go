// Package resolve collapses a weighted outcome list into one outcome.
package resolve

import (
	"fmt"

	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/types"
)

// Source yields draws in [0, 1).
type Source interface {
	Float64() float64
}

// Resolve draws once from src and walks the outcomes accumulating their
// probabilities in list order. The first outcome whose cumulative
// probability is >= the draw wins. When the weights sum to less than one
// and the draw lands past the total, the last outcome is returned.
// Returns the outcome and its index.
func Resolve(outcomes []types.Outcome, src Source) (types.Outcome, int, error) {
	if len(outcomes) == 0 {
		return types.Outcome{}, -1, fmt.Errorf("resolve: empty outcome list: %w", state.ErrInvalidLevelData)
	}

	idx := Pick(outcomes, src.Float64())
	return outcomes[idx], idx, nil
}

// Pick returns the index selected by a given draw. outcomes must be non-empty.
func Pick(outcomes []types.Outcome, draw float64) int {
	cumulative := 0.0
	for i, o := range outcomes {
		cumulative += o.Probability
		if draw <= cumulative {
			return i
		}
	}
	return len(outcomes) - 1
}

// Total returns the summed probability of an outcome list.
func Total(outcomes []types.Outcome) float64 {
	total := 0.0
	for _, o := range outcomes {
		total += o.Probability
	}
	return total
}
