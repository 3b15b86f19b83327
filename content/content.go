// Package content bundles the default seven-level quantum escape room.
package content

import (
	"embed"
	"log/slog"

	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/loader"
)

// FS holds the bundled level scripts under levels/.
//
//go:embed levels/*.lua
var FS embed.FS

// Load compiles the bundled levels.
func Load(log *slog.Logger) (*state.Catalog, error) {
	return loader.LoadFS(FS, "levels", log)
}
