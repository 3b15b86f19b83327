// Package engine provides the level orchestrator that wires together the
// catalog, entanglement registry, decoherence timer, outcome resolver,
// and effects into a single round of play.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/nathoo/quantumroom/engine/effects"
	"github.com/nathoo/quantumroom/engine/entangle"
	"github.com/nathoo/quantumroom/engine/events"
	"github.com/nathoo/quantumroom/engine/resolve"
	"github.com/nathoo/quantumroom/engine/score"
	"github.com/nathoo/quantumroom/engine/state"
	"github.com/nathoo/quantumroom/engine/timer"
	"github.com/nathoo/quantumroom/types"
)

var (
	// ErrNotPlaying is returned when a choice is made outside the playing phase.
	ErrNotPlaying = errors.New("no level in play")
	// ErrNoOutcome is returned by Proceed when nothing has been resolved.
	ErrNoOutcome = errors.New("no outcome to proceed from")
	// ErrChoiceOutOfRange is returned for a choice index the level does not have.
	ErrChoiceOutOfRange = errors.New("choice index out of range")
	// ErrLevelOutOfRange is returned for a negative level index.
	ErrLevelOutOfRange = errors.New("level index out of range")
)

// Achievement tags awarded by choice mechanics rather than outcome data.
const (
	TagTunneler     = "quantum-tunneler"
	TagInterference = "interference-master"
)

const interferenceThreshold = 0.5

// Options configures a new Engine. Zero values select defaults.
type Options struct {
	Source  RandomSource
	Scoring *score.Table
	LowTime int
	Logger  *slog.Logger
	Bus     *events.Bus
}

// Engine holds the level catalog and the mutable session. It is not safe
// for concurrent use; the host serializes input and timer ticks.
type Engine struct {
	Catalog *state.Catalog
	Session *types.Session
	Bus     *events.Bus

	src      RandomSource
	scoring  score.Table
	registry *entangle.Registry
	timer    *timer.Timer
	log      *slog.Logger
	level    types.Level
}

// TickReport describes what one accepted timer tick did.
type TickReport struct {
	Accepted bool
	Tick     timer.Tick
	Events   []types.Event
	Forced   *types.ResolutionResult // set when expiry forced a choice
}

// New creates an engine sitting at the menu.
func New(catalog *state.Catalog, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	src := opts.Source
	if src == nil {
		seed, err := NewSeed()
		if err != nil {
			log.Warn("falling back to clock seed", "error", err)
			seed = time.Now().UnixNano()
		}
		src = NewRNG(seed)
	}
	scoring := score.Default()
	if opts.Scoring != nil {
		scoring = *opts.Scoring
	}
	lowTime := opts.LowTime
	if lowTime <= 0 {
		lowTime = timer.DefaultLowTime
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	return &Engine{
		Catalog:  catalog,
		Session:  state.NewSession(),
		Bus:      bus,
		src:      src,
		scoring:  scoring,
		registry: entangle.NewRegistry(),
		timer:    timer.New(lowTime, log),
		log:      log,
	}
}

// Start resets the session and loads the first level.
func (e *Engine) Start() (types.LevelView, error) {
	if e.Catalog == nil || e.Catalog.Len() == 0 {
		return types.LevelView{}, fmt.Errorf("start: empty catalog: %w", state.ErrInvalidLevelData)
	}
	e.timer.Cancel()
	e.registry.Clear()
	state.ResetSession(e.Session)
	return e.LoadLevel(0)
}

// Restart abandons the current run and starts over from the first level.
func (e *Engine) Restart() (types.LevelView, error) {
	e.log.Info("game restarted", "score", e.Session.Score, "level", e.Session.LevelIndex)
	return e.Start()
}

// LoadLevel tears down the current level and loads the one at index.
// An index past the last level completes the game.
func (e *Engine) LoadLevel(index int) (types.LevelView, error) {
	if index < 0 {
		return types.LevelView{}, fmt.Errorf("load level %d: %w", index, ErrLevelOutOfRange)
	}

	// A level that fails validation leaves the current one untouched.
	lvl, ok := e.Catalog.Level(index)
	if ok {
		if err := state.ValidateLevel(lvl); err != nil {
			return types.LevelView{}, fmt.Errorf("load level %d: %w", index, err)
		}
	}

	e.timer.Cancel()
	e.registry.Clear()
	if !ok {
		return e.complete(), nil
	}

	e.level = lvl
	s := e.Session
	s.LevelIndex = index
	s.Round = 1
	s.Pending = ""
	s.QuantumState = types.StateSuperposition
	s.Phase = types.PhasePlaying
	s.TimeRemaining = lvl.DecoherenceTime

	regID := e.registry.Register(lvl)
	e.timer.Start(lvl.DecoherenceTime)

	e.log.Debug("level loaded",
		"level", lvl.Number, "key", lvl.Key, "choices", len(lvl.Choices),
		"links", e.registry.Len(), "registration", regID)

	e.Bus.Dispatch([]types.Event{{
		Type: events.LevelLoaded,
		Data: map[string]any{
			"level":        index,
			"number":       lvl.Number,
			"title":        lvl.Title,
			"registration": regID,
			"time":         lvl.DecoherenceTime,
		},
	}})

	return e.View(), nil
}

func (e *Engine) complete() types.LevelView {
	s := e.Session
	s.Phase = types.PhaseCompleted
	s.Pending = ""
	s.LevelIndex = e.Catalog.Len()
	e.level = types.Level{}

	e.log.Info("game complete", "score", s.Score, "achievements", len(s.Achievements))

	e.Bus.Dispatch([]types.Event{{
		Type: events.GameComplete,
		Data: map[string]any{
			"score":        s.Score,
			"achievements": append([]string(nil), s.Achievements...),
		},
	}})
	return e.View()
}

// ResolveChoice collapses the choice at index for the current round.
func (e *Engine) ResolveChoice(index int) (types.ResolutionResult, error) {
	return e.resolveChoice(index, false)
}

// ChoiceIndex returns the index of the choice with the given ID in the
// current level.
func (e *Engine) ChoiceIndex(id string) (int, bool) {
	for i, ch := range e.level.Choices {
		if ch.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (e *Engine) resolveChoice(index int, forced bool) (types.ResolutionResult, error) {
	s := e.Session
	if s.Phase != types.PhasePlaying {
		return types.ResolutionResult{}, ErrNotPlaying
	}
	if index < 0 || index >= len(e.level.Choices) {
		return types.ResolutionResult{}, fmt.Errorf("choice %d of %d: %w", index+1, len(e.level.Choices), ErrChoiceOutOfRange)
	}
	choice := e.level.Choices[index]

	// Capture entanglement effects and sample before touching any state.
	entEffects := e.registry.EffectsFor(index)
	outcome, outIdx, err := resolve.Resolve(choice.Outcomes, e.src)
	if err != nil {
		return types.ResolutionResult{}, fmt.Errorf("choice %q: %w", choice.ID, err)
	}

	e.timer.Cancel()
	remaining := e.timer.Remaining()
	s.TimeRemaining = remaining

	next := normalizeAction(outcome.NextAction)
	qs := types.StateCollapsed
	if forced {
		qs = types.StateDecoherent
	}

	points := e.scoring.Points(outcome.Result)
	early := e.scoring.Early(remaining)

	effs := []types.Effect{
		{Type: effects.SetQuantumState, Params: map[string]any{"state": qs}},
		{Type: effects.AddScore, Params: map[string]any{"points": points, "reason": string(outcome.Result)}},
	}
	if early > 0 {
		effs = append(effs, types.Effect{Type: effects.AddScore, Params: map[string]any{"points": early, "reason": "early collapse"}})
	}
	if outcome.Bonus != "" {
		if !score.Known(outcome.Bonus) {
			e.log.Warn("unknown bonus tag", "tag", outcome.Bonus, "choice", choice.ID)
		}
		effs = append(effs, e.award(outcome.Bonus))
	}
	if choice.Barrier != nil && tunnels(*choice.Barrier, e.src) {
		effs = append(effs, e.award(TagTunneler))
	}
	if choice.Interference != nil && interferes(*choice.Interference) {
		effs = append(effs, e.award(TagInterference))
	}
	if next == types.ActionContinue && outcome.TimeBonus != 0 {
		effs = append(effs, types.Effect{Type: effects.TimeBonus, Params: map[string]any{"seconds": outcome.TimeBonus}})
	}

	before := s.Score
	evts, output := effects.Apply(s, effs)

	var unlocked []string
	for _, ev := range evts {
		if ev.Type == events.AchievementUnlocked {
			tag, _ := ev.Data["tag"].(string)
			unlocked = append(unlocked, tag)
		}
	}

	s.Phase = types.PhaseOutcome
	s.Pending = next
	s.Resolutions++

	res := types.ResolutionResult{
		ChoiceIndex:         index,
		ChoiceID:            choice.ID,
		Forced:              forced,
		OutcomeIndex:        outIdx,
		Outcome:             outcome,
		OutcomeText:         outcome.Text,
		EntanglementEffects: entEffects,
		Points:              points,
		EarlyBonus:          early,
		AchievementPoints:   e.scoring.Achievement * len(unlocked),
		ScoreDelta:          s.Score - before,
		NextAction:          next,
		BonusTag:            outcome.Bonus,
		Unlocked:            unlocked,
		TimeRemaining:       remaining,
		Effects:             effs,
		Output:              output,
	}

	evts = append(evts, types.Event{
		Type: events.ChoiceResolved,
		Data: map[string]any{
			"level":       s.LevelIndex,
			"number":      e.level.Number,
			"round":       s.Round,
			"choice":      index,
			"choice_id":   choice.ID,
			"outcome":     outIdx,
			"result":      string(outcome.Result),
			"next_action": string(next),
			"forced":      forced,
			"remaining":   remaining,
			"score_delta": res.ScoreDelta,
			"score":       s.Score,
		},
	})
	res.Events = evts

	e.log.Debug("choice resolved",
		"level", e.level.Number, "choice", choice.ID, "result", outcome.Result,
		"next", next, "forced", forced, "delta", res.ScoreDelta)

	e.Bus.Dispatch(evts)
	return res, nil
}

func (e *Engine) award(tag string) types.Effect {
	return types.Effect{Type: effects.AwardAchievement, Params: map[string]any{"tag": tag, "points": e.scoring.Achievement}}
}

// tunnels draws once against exp(-height/width).
func tunnels(b types.Barrier, src RandomSource) bool {
	if b.Width <= 0 {
		return false
	}
	return src.Float64() < math.Exp(-b.Height/b.Width)
}

func interferes(in types.Interference) bool {
	return in.Amplitude*math.Cos(in.Phase) > interferenceThreshold
}

func normalizeAction(a types.NextAction) types.NextAction {
	switch a {
	case types.ActionAdvance, types.ActionRetry, types.ActionContinue:
		return a
	default:
		return types.ActionRetry
	}
}

// Tick delivers one wall-clock second to the countdown identified by tok.
// Stale tokens are ignored. On expiry a uniformly random choice is forced
// through the normal resolution path.
func (e *Engine) Tick(tok timer.Token) (TickReport, error) {
	tk, ok := e.timer.Tick(tok)
	if !ok {
		return TickReport{}, nil
	}
	s := e.Session
	s.TimeRemaining = tk.Remaining

	report := TickReport{Accepted: true, Tick: tk}
	report.Events = append(report.Events, types.Event{
		Type: events.TimerTick,
		Data: map[string]any{"remaining": tk.Remaining},
	})
	if tk.LowTime {
		report.Events = append(report.Events, types.Event{
			Type: events.TimerLow,
			Data: map[string]any{"remaining": tk.Remaining},
		})
	}
	e.Bus.Dispatch(report.Events)

	if !tk.Expired {
		return report, nil
	}

	idx := pickIndex(e.src, len(e.level.Choices))
	e.log.Info("decoherence forced a choice", "level", e.level.Number, "choice", idx)
	res, err := e.resolveChoice(idx, true)
	if err != nil {
		return report, fmt.Errorf("forced resolution: %w", err)
	}
	report.Forced = &res
	return report, nil
}

// Proceed applies the pending next action of the last outcome.
func (e *Engine) Proceed() (types.LevelView, error) {
	s := e.Session
	if s.Phase != types.PhaseOutcome {
		return types.LevelView{}, ErrNoOutcome
	}

	switch s.Pending {
	case types.ActionAdvance:
		e.Bus.Dispatch([]types.Event{{
			Type: events.LevelComplete,
			Data: map[string]any{"level": s.LevelIndex, "number": e.level.Number, "score": s.Score},
		}})
		return e.LoadLevel(s.LevelIndex + 1)

	case types.ActionContinue:
		s.Phase = types.PhasePlaying
		s.Pending = ""
		s.Round++
		s.QuantumState = types.StateSuperposition
		if s.TimeRemaining > 0 {
			e.timer.Start(s.TimeRemaining)
		}
		return e.View(), nil

	default:
		return e.LoadLevel(s.LevelIndex)
	}
}

// Pause holds the countdown while the player is away.
func (e *Engine) Pause() {
	if e.Session.Phase == types.PhasePlaying {
		e.timer.Pause()
	}
}

// Resume restarts a paused countdown and returns its new token.
func (e *Engine) Resume() (timer.Token, bool) {
	if e.Session.Phase != types.PhasePlaying {
		return 0, false
	}
	return e.timer.Resume()
}

// TimerToken returns the token of the running countdown, if any.
func (e *Engine) TimerToken() (timer.Token, bool) {
	return e.timer.Token()
}

// TimerStatus returns the countdown's lifecycle status.
func (e *Engine) TimerStatus() timer.Status {
	return e.timer.Status()
}

// LowTime reports whether the countdown is in its warning state.
func (e *Engine) LowTime() bool {
	return e.Session.Phase == types.PhasePlaying && e.timer.Low()
}

// Level returns the level in play.
func (e *Engine) Level() types.Level {
	return e.level
}

// View returns the renderable view of the current level.
func (e *Engine) View() types.LevelView {
	if e.Session.Phase == types.PhaseCompleted {
		return types.LevelView{
			Index:        e.Session.LevelIndex,
			Total:        e.Catalog.Len(),
			GameComplete: true,
		}
	}

	lvl := e.level
	v := types.LevelView{
		Index:           e.Session.LevelIndex,
		Number:          lvl.Number,
		Total:           e.Catalog.Len(),
		Title:           lvl.Title,
		Concept:         lvl.Concept,
		Difficulty:      lvl.Difficulty,
		Scenario:        lvl.Scenario,
		Visualization:   lvl.Visualization,
		Tutorial:        lvl.Tutorial,
		Physics:         lvl.Physics,
		DecoherenceTime: lvl.DecoherenceTime,
		Entanglements:   e.registry.Len(),
	}
	for i, ch := range lvl.Choices {
		v.Choices = append(v.Choices, types.ChoiceView{
			Index:       i,
			ID:          ch.ID,
			Text:        ch.Text,
			Description: ch.Description,
			Entangled:   len(ch.Entangled) > 0 || e.registry.Entangled(i),
			Tunneling:   ch.Barrier != nil,
		})
	}
	return v
}
