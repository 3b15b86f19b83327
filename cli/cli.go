// Package cli provides plain terminal I/O, output formatting, and
// meta-command dispatch for the quantum escape room.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nathoo/quantumroom/engine"
	"github.com/nathoo/quantumroom/engine/parser"
	"github.com/nathoo/quantumroom/engine/timer"
	"github.com/nathoo/quantumroom/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)

	// Realtime drives the countdown from the wall clock. When false only
	// the wait command advances it, which keeps scripts deterministic.
	Realtime bool
	Interval time.Duration // one countdown second; defaults to time.Second
}

// New creates a CLI wired to the given engine with a realtime countdown.
func New(eng *engine.Engine) *CLI {
	return &CLI{
		Engine:   eng,
		In:       os.Stdin,
		Out:      os.Stdout,
		Realtime: true,
		Interval: time.Second,
	}
}

// Run starts the game loop. It shows the intro and the first level, then
// serves input lines and countdown ticks from one goroutine until /quit
// or end of input.
func (c *CLI) Run() error {
	if intro := c.Engine.Catalog.Game.Intro; intro != "" {
		c.printLine(intro)
		c.printLine("")
	}

	view, err := c.Engine.Start()
	if err != nil {
		return fmt.Errorf("starting game: %w", err)
	}
	c.printView(view)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(c.In, done)

	var (
		tick    <-chan time.Time
		pending timer.Token
		clock   *time.Timer
	)
	stop := func() {
		if clock != nil {
			clock.Stop()
		}
		tick = nil
	}
	// schedule arms the clock for the running countdown, keeping an
	// armed clock when the countdown has not changed.
	schedule := func() {
		tok, ok := c.Engine.TimerToken()
		if !c.Realtime || !ok {
			stop()
			return
		}
		if tick != nil && tok == pending {
			return
		}
		stop()
		interval := c.Interval
		if interval <= 0 {
			interval = time.Second
		}
		pending = tok
		clock = time.NewTimer(interval)
		tick = clock.C
	}
	defer stop()

	schedule()
	c.print("> ")
	for {
		select {
		case input, ok := <-lines:
			if !ok {
				return nil
			}
			input = strings.TrimSpace(input)
			if input == "" || strings.HasPrefix(input, "#") {
				continue
			}
			if c.EchoInput {
				c.printLine(input)
			}
			if strings.HasPrefix(input, "/") {
				if c.handleMeta(input) {
					return nil
				}
			} else {
				c.handleCommand(input)
			}
			schedule()
			c.print("> ")

		case <-tick:
			tick = nil
			c.handleTick(pending)
			schedule()
		}
	}
}

// readLines feeds input lines to the game loop until EOF or done.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// handleCommand dispatches a game command.
func (c *CLI) handleCommand(input string) {
	intent := parser.Parse(input)

	switch intent.Verb {
	case "choose":
		c.choose(intent.Object)
	case "next":
		c.proceed()
	case "look":
		c.printView(c.Engine.View())
	case "wait":
		c.wait(intent.Object)
	case "restart":
		c.restart()
	case "help":
		c.cmdHelp()
	case "state":
		c.cmdState()
	default:
		// A bare choice id selects that choice.
		if idx, ok := c.Engine.ChoiceIndex(strings.ToLower(input)); ok {
			c.resolve(idx)
			return
		}
		c.printLine("I don't understand that. Pick a numbered choice, or type help.")
	}
}

func (c *CLI) choose(object string) {
	if object == "" {
		c.printLine("Choose which option?")
		return
	}
	if idx, ok := parser.Number(object); ok {
		c.resolve(idx)
		return
	}
	if idx, ok := c.Engine.ChoiceIndex(object); ok {
		c.resolve(idx)
		return
	}
	c.printLine(fmt.Sprintf("There is no choice %q here.", object))
}

func (c *CLI) resolve(idx int) {
	res, err := c.Engine.ResolveChoice(idx)
	if err != nil {
		c.printError(err)
		return
	}
	c.printResolution(res)
}

func (c *CLI) proceed() {
	view, err := c.Engine.Proceed()
	if err != nil {
		c.printError(err)
		return
	}
	c.printView(view)
}

func (c *CLI) restart() {
	view, err := c.Engine.Restart()
	if err != nil {
		c.printError(err)
		return
	}
	c.printSystem("Game restarted.")
	c.printView(view)
}

// wait advances the countdown n seconds (default 1) without the clock.
func (c *CLI) wait(object string) {
	n := 1
	if object != "" {
		v, err := strconv.Atoi(object)
		if err != nil || v <= 0 {
			c.printLine("Wait how many seconds?")
			return
		}
		n = v
	}

	if _, ok := c.Engine.TimerToken(); !ok {
		c.printLine("The countdown is not running.")
		return
	}
	for i := 0; i < n; i++ {
		tok, ok := c.Engine.TimerToken()
		if !ok {
			return
		}
		if c.handleTick(tok) {
			return
		}
	}
	c.printLine(fmt.Sprintf("Time passes. %d seconds until decoherence.", c.Engine.Session.TimeRemaining))
}

// handleTick delivers one countdown second. It reports whether the tick
// forced a resolution.
func (c *CLI) handleTick(tok timer.Token) bool {
	report, err := c.Engine.Tick(tok)
	if err != nil {
		c.printError(err)
		return false
	}
	if !report.Accepted {
		return false
	}
	if report.Tick.LowTime {
		c.printSystem(fmt.Sprintf("Decoherence warning: %d seconds remain", report.Tick.Remaining))
	}
	if report.Forced != nil {
		c.printResolution(*report.Forced)
		return true
	}
	return false
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/restart":
		c.restart()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Show session state",
		"  /restart      Start over from the first level",
		"  /trace        Toggle debug trace output",
		"",
		"Game commands:",
		"  <n> or choose <n>     Collapse choice n",
		"  <choice-id>           Collapse the choice with that id",
		"  next (n)              Continue after an outcome",
		"  look (l)              Describe the level again",
		"  wait [n] (z)          Let n seconds of coherence pass",
		"  restart               Start over",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	for _, line := range engine.StateLines(c.Engine.Session, c.Engine.Catalog.Len()) {
		c.printSystem(line)
	}
	if len(c.Engine.Session.Achievements) > 0 {
		c.printSystem(fmt.Sprintf("Achievements: %v", c.Engine.Session.Achievements))
	}
}

func (c *CLI) printView(v types.LevelView) {
	if v.GameComplete {
		for _, line := range engine.Summary(c.Engine.Session) {
			c.printLine(line)
		}
		c.printLine("Type restart to play again, or /quit.")
		return
	}
	for _, line := range engine.DescribeLevel(v) {
		c.printLine(line)
	}
}

func (c *CLI) printResolution(res types.ResolutionResult) {
	for _, line := range engine.FormatResolution(res) {
		c.printLine(line)
	}
	if c.Trace {
		c.printTrace(res)
	}
}

func (c *CLI) printTrace(res types.ResolutionResult) {
	c.printSystem(fmt.Sprintf("[trace] Choice %q outcome %d (%s)", res.ChoiceID, res.OutcomeIndex, res.Outcome.Result))
	if len(res.Effects) > 0 {
		c.printSystem(fmt.Sprintf("[trace] Effects: %d", len(res.Effects)))
		for _, e := range res.Effects {
			c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Params))
		}
	}
	if len(res.Events) > 0 {
		c.printSystem(fmt.Sprintf("[trace] Events: %d", len(res.Events)))
		for _, e := range res.Events {
			c.printSystem(fmt.Sprintf("[trace]   %s", e.Type))
		}
	}
}

func (c *CLI) printError(err error) {
	switch {
	case errors.Is(err, engine.ErrNotPlaying) && c.Engine.Session.Phase == types.PhaseCompleted:
		c.printLine("The game is over. Type restart to play again.")
	case errors.Is(err, engine.ErrNotPlaying):
		c.printLine("The system has already collapsed. Type next to continue.")
	case errors.Is(err, engine.ErrNoOutcome):
		c.printLine("Make a choice first.")
	default:
		c.printSystem(err.Error())
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
