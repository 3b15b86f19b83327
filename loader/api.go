package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.game = tbl
		return 0
	}))

	// Level "key" { ... } is curried: Level("key") returns a function that takes a table.
	L.SetGlobal("Level", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.levels = append(coll.levels, rawLevel{
				key:   key,
				table: tbl,
				order: coll.nextSourceOrder(),
			})
			return 0
		}))
		return 1
	}))

	// Choice "id" { ... } is curried and returns the table tagged with its id
	// so it can sit inside a level's choices list.
	L.SetGlobal("Choice", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			tbl.RawSetString("id", lua.LString(id))
			L.Push(tbl)
			return 1
		}))
		return 1
	}))

	// Outcome { p = 0.6, result = "success", ... } passes through.
	L.SetGlobal("Outcome", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		L.Push(tbl)
		return 1
	}))

	// Entangle { "choice-a", "choice-b", type = "positive", strength = 0.9 }
	// Participants are the array part: choice ids or 0-based indices.
	L.SetGlobal("Entangle", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		L.Push(tbl)
		return 1
	}))
}

func registerHelpers(L *lua.LState) {
	// Barrier(height, width)
	L.SetGlobal("Barrier", L.NewFunction(func(L *lua.LState) int {
		height := L.CheckNumber(1)
		width := L.CheckNumber(2)
		tbl := L.NewTable()
		tbl.RawSetString("height", height)
		tbl.RawSetString("width", width)
		L.Push(tbl)
		return 1
	}))

	// Interference(phase, amplitude)
	L.SetGlobal("Interference", L.NewFunction(func(L *lua.LState) int {
		phase := L.CheckNumber(1)
		amplitude := L.CheckNumber(2)
		tbl := L.NewTable()
		tbl.RawSetString("phase", phase)
		tbl.RawSetString("amplitude", amplitude)
		L.Push(tbl)
		return 1
	}))

	// Tutorial("concept", "explanation")
	L.SetGlobal("Tutorial", L.NewFunction(func(L *lua.LState) int {
		concept := L.CheckString(1)
		explanation := L.OptString(2, "")
		tbl := L.NewTable()
		tbl.RawSetString("concept", lua.LString(concept))
		tbl.RawSetString("explanation", lua.LString(explanation))
		L.Push(tbl)
		return 1
	}))
}
