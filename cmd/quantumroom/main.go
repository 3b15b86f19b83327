// Quantum Escape Room is a timed puzzle game about superposition,
// entanglement and decoherence.
// Usage: quantumroom [--version] [--plain] [--script <file>] [--trace] [--seed <n>]
//
//	[--config <file>] [--journal <db>] [levels_directory]
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/nathoo/quantumroom/cli"
	"github.com/nathoo/quantumroom/config"
	"github.com/nathoo/quantumroom/content"
	"github.com/nathoo/quantumroom/engine"
	"github.com/nathoo/quantumroom/engine/events"
	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/journal"
	"github.com/nathoo/quantumroom/loader"
	"github.com/nathoo/quantumroom/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: quantumroom [--version] [--plain] [--script <file>] [--trace] [--seed <n>] [--config <file>] [--journal <db>] [levels_directory]\n"

// exitCode is applied after deferred cleanup in main has run.
var exitCode int

func main() {
	defer func() { os.Exit(exitCode) }()

	plain := false
	trace := false
	var (
		levelsDir   string
		scriptFile  string
		configFile  string
		journalPath string
		seed        int64
		seedSet     bool
	)

	args := os.Args[1:]
	value := func(i int, flag string) string {
		if i+1 >= len(args) {
			fmt.Fprintf(os.Stderr, "%s requires a value\n", flag)
			os.Exit(1)
		}
		return args[i+1]
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("quantumroom %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--help", "-h":
			fmt.Print(usage)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script":
			scriptFile = value(i, "--script")
			i++
		case "--config":
			configFile = value(i, "--config")
			i++
		case "--journal":
			journalPath = value(i, "--journal")
			i++
		case "--seed":
			n, err := strconv.ParseInt(value(i, "--seed"), 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "--seed must be an integer: %v\n", err)
				os.Exit(1)
			}
			seed = n
			seedSet = true
			i++
		default:
			if levelsDir == "" {
				levelsDir = args[i]
			}
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	// Flags win over the config file and environment.
	if levelsDir != "" {
		cfg.LevelsDir = levelsDir
	}
	if journalPath != "" {
		cfg.Journal = journalPath
	}
	if seedSet {
		cfg.Seed = seed
	}

	lvl, _ := cfg.Level() // validated by Load
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	cat, err := loadCatalog(cfg.LevelsDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading levels: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(cat, engineOptions(cfg, seedSet, log))

	if cfg.Journal != "" {
		store, err := journal.Open(cfg.Journal)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		eng.Bus.On(events.ChoiceResolved, store.Handler(log))
		log.Info("journal enabled", "path", cfg.Journal, "session", store.SessionID())
	}

	if err := run(eng, cat, scriptFile, plain, trace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = 1
	}
}

// run picks the front end. Scripts replay without the wall clock so a
// playthrough is reproducible with --seed.
func run(eng *engine.Engine, cat *state.Catalog, scriptFile string, plain, trace bool) error {
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		printTitle(cat)
		c := cli.New(eng)
		c.In = f
		c.EchoInput = true
		c.Realtime = false
		c.Trace = trace
		return c.Run()
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		printTitle(cat)
		c := cli.New(eng)
		c.Trace = trace
		return c.Run()
	}

	return tui.Run(eng)
}

// engineOptions maps the config onto the engine. A seed of 0 from the
// config file or environment means random; --seed 0 is honored as given.
func engineOptions(cfg config.Config, seedSet bool, log *slog.Logger) engine.Options {
	table := cfg.Table()
	opts := engine.Options{
		Scoring: &table,
		LowTime: cfg.LowTime,
		Logger:  log,
	}
	if seedSet || cfg.Seed != 0 {
		opts.Source = engine.NewRNG(cfg.Seed)
	}
	return opts
}

func loadCatalog(dir string, log *slog.Logger) (*state.Catalog, error) {
	if dir == "" {
		return content.Load(log)
	}
	return loader.Load(dir, log)
}

func printTitle(cat *state.Catalog) {
	g := cat.Game
	header := g.Title
	if g.Version != "" {
		header += " v" + g.Version
	}
	if g.Author != "" {
		header += " by " + g.Author
	}
	fmt.Printf("%s\n\n", header)
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
