// Package loader loads Lua level content into Go structs at startup.
// The Lua VM is discarded after loading; nothing Lua runs during play.
package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/types"
)

// rawLevel holds a level table before compilation.
type rawLevel struct {
	key   string
	table *lua.LTable
	order int
}

// Decoherence budgets by difficulty, used when a level omits its own.
var difficultyTime = map[string]int{
	"Simple":   30,
	"Beginner": 30,
	"Moderate": 25,
	"Complex":  20,
	"Expert":   12,
	"Master":   15,
}

const defaultDecoherence = 30

// Outcome keys that map onto typed fields; anything else lands in Props.
var outcomeFields = map[string]bool{
	"p": true, "probability": true, "result": true, "text": true,
	"next": true, "next_action": true, "bonus": true, "time_bonus": true,
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// hasField reports whether key is set on the table.
func hasField(tbl *lua.LTable, key string) bool {
	return tbl.RawGetString(key) != lua.LNil
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Check if it's an array (sequential integer keys starting at 1).
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToStringMap converts a Lua table to a map[string]string.
// Numbers are formatted so captions like `decoherence = 15` survive.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch vv := v.(type) {
		case lua.LString:
			m[string(ks)] = string(vv)
		case lua.LNumber:
			m[string(ks)] = vv.String()
		}
	})
	return m
}

// arrayPart returns the sequential values of a table (1..MaxN).
func arrayPart(tbl *lua.LTable) []lua.LValue {
	if tbl == nil {
		return nil
	}
	n := tbl.MaxN()
	out := make([]lua.LValue, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, tbl.RawGetInt(i))
	}
	return out
}

// compile converts all collected Lua data into a Catalog. Structural
// problems that can be reported alongside others are collected in the
// returned ValidationError; only a missing Game{} aborts outright.
func compile(coll *collector) (*state.Catalog, *ValidationError, error) {
	if coll.game == nil {
		return nil, nil, fmt.Errorf("no Game{} definition found")
	}

	cat := &state.Catalog{Game: compileGame(coll.game)}
	ve := &ValidationError{}

	for _, raw := range coll.levels {
		lvl, problems := compileLevel(raw)
		for _, p := range problems {
			ve.Errors = append(ve.Errors, fmt.Sprintf("level %q: %s", raw.key, p))
		}
		cat.Levels = append(cat.Levels, lvl)
	}

	// Play order: level number, ties broken by source order.
	sort.SliceStable(cat.Levels, func(i, j int) bool {
		return cat.Levels[i].Number < cat.Levels[j].Number
	})

	return cat, ve, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
		Intro:   getString(tbl, "intro"),
	}
}

// compileLevel compiles a raw level and returns problems found while
// resolving choice references.
func compileLevel(raw rawLevel) (types.Level, []string) {
	tbl := raw.table
	lvl := types.Level{
		Key:         raw.key,
		Number:      getInt(tbl, "number"),
		Title:       getString(tbl, "title"),
		Concept:     getString(tbl, "concept"),
		Description: getString(tbl, "description"),
		Difficulty:  getString(tbl, "difficulty"),
		Physics:     tableToStringMap(getTable(tbl, "physics")),
	}
	if !hasField(tbl, "number") {
		lvl.Number = raw.order
	}

	switch {
	case hasField(tbl, "decoherence"):
		lvl.DecoherenceTime = getInt(tbl, "decoherence")
	case hasField(tbl, "decoherence_time"):
		lvl.DecoherenceTime = getInt(tbl, "decoherence_time")
	default:
		lvl.DecoherenceTime = defaultDecoherence
		if t, ok := difficultyTime[lvl.Difficulty]; ok {
			lvl.DecoherenceTime = t
		}
	}

	// scenario may be a string or { text = ..., visualization = ... }.
	if sc := getTable(tbl, "scenario"); sc != nil {
		lvl.Scenario = getString(sc, "text")
		lvl.Visualization = getString(sc, "visualization")
	} else {
		lvl.Scenario = getString(tbl, "scenario")
	}
	if v := getString(tbl, "visualization"); v != "" {
		lvl.Visualization = v
	}

	if tut := getTable(tbl, "tutorial"); tut != nil {
		lvl.Tutorial = types.Tutorial{
			Concept:     getString(tut, "concept"),
			Explanation: getString(tut, "explanation"),
		}
	}

	for _, v := range arrayPart(getTable(tbl, "choices")) {
		chTbl, ok := v.(*lua.LTable)
		if !ok {
			continue
		}
		lvl.Choices = append(lvl.Choices, compileChoice(chTbl))
	}

	ids := map[string]int{}
	for i, ch := range lvl.Choices {
		if ch.ID != "" {
			ids[ch.ID] = i
		}
	}

	var problems []string

	// Second pass over choices: resolve entangled references now that ids are known.
	i := 0
	for _, v := range arrayPart(getTable(tbl, "choices")) {
		chTbl, ok := v.(*lua.LTable)
		if !ok {
			continue
		}
		refs, errs := resolveParticipants(arrayPart(getTable(chTbl, "entangled")), ids)
		lvl.Choices[i].Entangled = refs
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("choice %q entangled %s", lvl.Choices[i].ID, e))
		}
		i++
	}

	n := 0
	for _, v := range arrayPart(getTable(tbl, "entanglements")) {
		linkTbl, ok := v.(*lua.LTable)
		if !ok {
			continue
		}
		parts := arrayPart(linkTbl)
		if len(parts) == 0 {
			parts = arrayPart(getTable(linkTbl, "particles"))
		}
		refs, errs := resolveParticipants(parts, ids)
		for _, e := range errs {
			problems = append(problems, fmt.Sprintf("entanglement %d %s", n, e))
		}
		strength := 1.0
		if hasField(linkTbl, "strength") {
			strength = getNumber(linkTbl, "strength")
		}
		lvl.Entanglements = append(lvl.Entanglements, types.EntanglementLink{
			Participants: refs,
			Correlation:  types.Correlation(getString(linkTbl, "type")),
			Strength:     strength,
		})
		n++
	}

	return lvl, problems
}

func compileChoice(tbl *lua.LTable) types.Choice {
	ch := types.Choice{
		ID:          getString(tbl, "id"),
		Text:        getString(tbl, "text"),
		Description: getString(tbl, "description"),
	}
	if it := getTable(tbl, "interference"); it != nil {
		ch.Interference = &types.Interference{
			Phase:     getNumber(it, "phase"),
			Amplitude: getNumber(it, "amplitude"),
		}
	}
	if b := getTable(tbl, "barrier"); b != nil {
		ch.Barrier = &types.Barrier{
			Height: getNumber(b, "height"),
			Width:  getNumber(b, "width"),
		}
	}
	for _, v := range arrayPart(getTable(tbl, "outcomes")) {
		if oTbl, ok := v.(*lua.LTable); ok {
			ch.Outcomes = append(ch.Outcomes, compileOutcome(oTbl))
		}
	}
	return ch
}

func compileOutcome(tbl *lua.LTable) types.Outcome {
	o := types.Outcome{
		Result:    types.ResultKind(getString(tbl, "result")),
		Text:      getString(tbl, "text"),
		Bonus:     getString(tbl, "bonus"),
		TimeBonus: getInt(tbl, "time_bonus"),
	}
	if hasField(tbl, "probability") {
		o.Probability = getNumber(tbl, "probability")
	} else {
		o.Probability = getNumber(tbl, "p")
	}
	if next := getString(tbl, "next"); next != "" {
		o.NextAction = types.NextAction(next)
	} else {
		o.NextAction = types.NextAction(getString(tbl, "next_action"))
	}

	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || outcomeFields[string(ks)] {
			return
		}
		if o.Props == nil {
			o.Props = map[string]any{}
		}
		o.Props[string(ks)] = toGoValue(v)
	})
	return o
}

// resolveParticipants maps choice ids and 0-based indices to indices.
// Index range is left to state.ValidateLevel.
func resolveParticipants(vals []lua.LValue, ids map[string]int) ([]int, []string) {
	var refs []int
	var problems []string
	for _, v := range vals {
		switch p := v.(type) {
		case lua.LString:
			idx, ok := ids[string(p)]
			if !ok {
				problems = append(problems, fmt.Sprintf("references unknown choice %q", string(p)))
				continue
			}
			refs = append(refs, idx)
		case lua.LNumber:
			f := float64(p)
			if f != float64(int(f)) {
				problems = append(problems, fmt.Sprintf("participant %v is not an integer index", f))
				continue
			}
			refs = append(refs, int(f))
		default:
			problems = append(problems, fmt.Sprintf("participant of type %s is neither a choice id nor an index", v.Type()))
		}
	}
	return refs, problems
}

// sortedLuaFiles returns .lua files with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
