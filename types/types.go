// Package types defines the shared data structures for the quantumroom engine.
// It holds type definitions only, with no logic or methods.
package types

// ResultKind classifies an outcome for scoring.
type ResultKind string

const (
	ResultSuccess ResultKind = "success"
	ResultPartial ResultKind = "partial"
	ResultFailure ResultKind = "failure"
)

// NextAction tells the orchestrator what follows an outcome.
type NextAction string

const (
	ActionAdvance  NextAction = "advance"
	ActionRetry    NextAction = "retry"
	ActionContinue NextAction = "continue"
)

// Correlation is the declared kind of an entanglement link.
// Unrecognized strings from content are preserved as-is.
type Correlation string

const (
	CorrelationAnti        Correlation = "anti-correlated"
	CorrelationPositive    Correlation = "positive"
	CorrelationNegative    Correlation = "negative"
	CorrelationNeutral     Correlation = "neutral"
	CorrelationThreeWay    Correlation = "three-way"
	CorrelationBellState   Correlation = "bell-state"
	CorrelationMacroscopic Correlation = "macroscopic"
)

// QuantumState is the display tag for the current round.
type QuantumState string

const (
	StateSuperposition QuantumState = "superposition"
	StateCollapsed     QuantumState = "collapsed"
	StateDecoherent    QuantumState = "decoherent"
)

// Phase is the orchestrator's position in menu → playing → outcome → completed.
type Phase string

const (
	PhaseMenu      Phase = "menu"
	PhasePlaying   Phase = "playing"
	PhaseOutcome   Phase = "outcome"
	PhaseCompleted Phase = "completed"
)

// Outcome is one weighted result of a choice.
type Outcome struct {
	Probability float64
	Result      ResultKind
	Text        string
	NextAction  NextAction
	Bonus       string         // achievement tag, optional
	TimeBonus   int            // seconds, optional
	Props       map[string]any // free-form flavor (catState, bellContribution, ...)
}

// Interference holds the wave parameters of a choice.
type Interference struct {
	Phase     float64
	Amplitude float64
}

// Barrier holds the tunneling parameters of a choice.
type Barrier struct {
	Height float64
	Width  float64
}

// Choice is a selectable option within a level.
type Choice struct {
	ID           string
	Text         string
	Description  string
	Entangled    []int         // participant choice indices, optional
	Interference *Interference // optional
	Barrier      *Barrier      // optional
	Outcomes     []Outcome
}

// EntanglementLink correlates two or more choices of a level.
type EntanglementLink struct {
	Participants []int
	Correlation  Correlation
	Strength     float64
}

// Tutorial is the concept sidebar shown with a level.
type Tutorial struct {
	Concept     string
	Explanation string
}

// Level is one room of the escape game. Immutable once loaded.
type Level struct {
	Number          int
	Key             string
	Title           string
	Concept         string
	Description     string
	Difficulty      string
	DecoherenceTime int // seconds
	Scenario        string
	Visualization   string
	Tutorial        Tutorial
	Physics         map[string]string // label key → formula
	Choices         []Choice
	Entanglements   []EntanglementLink
}

// GameDef holds game metadata.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Intro   string
}

// EntanglementEffect is the side-effect of a link on a resolved choice.
type EntanglementEffect struct {
	LinkID      string
	Type        Correlation
	Strength    float64
	Description string
}

// Effect is a single atomic session mutation instruction.
type Effect struct {
	Type   string
	Params map[string]any
}

// Event is emitted after effects are applied or when the orchestrator
// changes phase.
type Event struct {
	Type string
	Data map[string]any
}

// Session is the complete mutable play state.
type Session struct {
	LevelIndex    int
	Score         int
	Achievements  []string // unique, in unlock order
	TimeRemaining int
	QuantumState  QuantumState
	Phase         Phase
	Round         int // rounds played in the current level visit
	Pending       NextAction
	Resolutions   int // total resolutions this session
}

// ChoiceView is the renderable part of a choice.
type ChoiceView struct {
	Index       int
	ID          string
	Text        string
	Description string
	Entangled   bool
	Tunneling   bool
}

// LevelView is what the presentation layer needs to draw a level.
type LevelView struct {
	Index           int
	Number          int
	Total           int
	Title           string
	Concept         string
	Difficulty      string
	Scenario        string
	Visualization   string
	Tutorial        Tutorial
	Physics         map[string]string
	DecoherenceTime int
	Choices         []ChoiceView
	Entanglements   int
	GameComplete    bool
}

// ResolutionResult reports everything a single collapse changed.
type ResolutionResult struct {
	ChoiceIndex         int
	ChoiceID            string
	Forced              bool
	OutcomeIndex        int
	Outcome             Outcome
	OutcomeText         string
	EntanglementEffects []EntanglementEffect
	Points              int // result points
	EarlyBonus          int
	AchievementPoints   int
	ScoreDelta          int
	NextAction          NextAction
	BonusTag            string
	Unlocked            []string // achievements newly unlocked by this resolution
	TimeRemaining       int      // at the moment of resolution
	Effects             []Effect
	Events              []Event
	Output              []string
}

// Intent is a parsed player command.
type Intent struct {
	Verb   string
	Object string
}
