// Package parser converts command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strconv"
	"strings"

	"github.com/nathoo/quantumroom/types"
)

var verbAliases = map[string]string{
	// Choose
	"pick":     "choose",
	"select":   "choose",
	"c":        "choose",
	"measure":  "choose",
	"collapse": "choose",

	// Proceed past an outcome
	"n":        "next",
	"continue": "next",
	"ok":       "next",
	"proceed":  "next",
	"advance":  "next",
	"retry":    "next",
	"again":    "next",

	// Look
	"l":        "look",
	"describe": "look",
	"room":     "look",

	// Meta
	"reset":  "restart",
	"z":      "wait",
	"h":      "help",
	"?":      "help",
	"status": "state",
	"score":  "state",
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true, "option": true, "choice": true,
}

// Parse converts a raw command string into an Intent.
// A bare number selects that option (1-based, as displayed).
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	if len(words) == 1 {
		if _, err := strconv.Atoi(words[0]); err == nil {
			return types.Intent{Verb: "choose", Object: words[0]}
		}
	}

	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])

	return types.Intent{
		Verb:   verb,
		Object: strings.Join(rest, " "),
	}
}

// Number returns the 0-based option index named by an intent object
// such as "2", or false when the object is not a positive number.
func Number(object string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(object))
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// expandMultiWordVerbs handles "try again", "next level", "look around".
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "try":
		if words[1] == "again" {
			return append([]string{"next"}, words[2:]...)
		}
	case "next", "continue":
		if words[1] == "level" || words[1] == "round" {
			return append([]string{"next"}, words[2:]...)
		}
	case "look":
		if words[1] == "around" {
			return append([]string{"look"}, words[2:]...)
		}
	case "make":
		if words[1] == "choice" {
			return append([]string{"choose"}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes filler words from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}
