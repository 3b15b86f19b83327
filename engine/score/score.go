// Package score holds the point table and achievement titles.
package score

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nathoo/quantumroom/types"
)

// Table is the scoring configuration.
type Table struct {
	Success        int
	Partial        int
	Failure        int
	EarlyBonus     int
	EarlyThreshold int // remaining seconds that must be exceeded for EarlyBonus
	Achievement    int
}

// Default returns the standard table: 50/25/0, +10 above 20s, +100 per achievement.
func Default() Table {
	return Table{
		Success:        50,
		Partial:        25,
		Failure:        0,
		EarlyBonus:     10,
		EarlyThreshold: 20,
		Achievement:    100,
	}
}

// Points returns the result points for an outcome kind. Unknown kinds score 0.
func (t Table) Points(kind types.ResultKind) int {
	switch kind {
	case types.ResultSuccess:
		return t.Success
	case types.ResultPartial:
		return t.Partial
	case types.ResultFailure:
		return t.Failure
	default:
		return 0
	}
}

// Early returns the early bonus earned with remaining seconds left.
func (t Table) Early(remaining int) int {
	if remaining > t.EarlyThreshold {
		return t.EarlyBonus
	}
	return 0
}

var titles = map[string]string{
	"quantum-tunneling":          "Quantum Tunneling Master!",
	"entanglement-break":         "Entanglement Breaker!",
	"superposition-mastery":      "Superposition Expert!",
	"tunneling-success":          "Tunneling Specialist!",
	"quantum-master":             "Quantum Master!",
	"decoherence-master":         "Decoherence Controller!",
	"bell-violation":             "Bell Inequality Violator!",
	"experimental-design":        "Quantum Experimentalist!",
	"decoherence-understanding":  "Decoherence Expert!",
	"superposition-preservation": "Quantum Protector!",
	"quantum-tunneler":           "Barrier Tunneler!",
	"interference-master":        "Constructive Interference!",
}

// Known reports whether tag has a dedicated title.
func Known(tag string) bool {
	_, ok := titles[tag]
	return ok
}

// Title returns the display title for an achievement tag.
// Unknown tags get a title derived from the tag itself.
func Title(tag string) string {
	if t, ok := titles[tag]; ok {
		return t
	}
	words := strings.FieldsFunc(tag, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = capitalize(w)
	}
	if len(words) == 0 {
		return "Achievement Unlocked!"
	}
	return "Achievement Unlocked: " + strings.Join(words, " ")
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + w[size:]
}
