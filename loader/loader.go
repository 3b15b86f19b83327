package loader

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/quantumroom/engine/state"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	game   *lua.LTable
	levels []rawLevel
	order  int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Load reads all .lua files from dir and returns the validated level
// catalog. Content warnings go to log; nil discards them.
func Load(dir string, log *slog.Logger) (*state.Catalog, error) {
	return LoadFS(os.DirFS(dir), ".", log)
}

// LoadFS is Load over an fs.FS, used for the embedded level set.
// The Lua VM is discarded after loading.
func LoadFS(fsys fs.FS, dir string, log *slog.Logger) (*state.Catalog, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Discover .lua files.
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading level directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// Sort: game.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := runFile(L, fsys, path.Join(dir, f), f); err != nil {
			return nil, err
		}
	}

	cat, ve, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling level data: %w", err)
	}

	if err := validate(cat, ve, log); err != nil {
		return nil, err
	}

	log.Debug("levels loaded", "dir", dir, "files", len(luaFiles), "levels", cat.Len())
	return cat, nil
}

func runFile(L *lua.LState, fsys fs.FS, p, name string) error {
	src, err := fs.ReadFile(fsys, p)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	fn, err := L.Load(bytes.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("executing %s: %w", name, err)
	}
	return nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	// Math library, so content can write math.sqrt(2) / 2 and friends.
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Level data must not draw its own randomness.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("random", lua.LNil)
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
