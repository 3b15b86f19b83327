// Package events implements single-pass event dispatch to host subscribers.
// Handlers observe events; they cannot emit new ones into the same pass.
package events

import (
	"github.com/nathoo/quantumroom/types"
)

// Event types emitted by the engine.
const (
	TimerTick           = "timer_tick"
	TimerLow            = "timer_low"
	Decoherence         = "decoherence"
	LevelLoaded         = "level_loaded"
	ChoiceResolved      = "choice_resolved"
	AchievementUnlocked = "achievement_unlocked"
	LevelComplete       = "level_complete"
	GameComplete        = "game_complete"
)

// Any subscribes a handler to every event type.
const Any = "*"

// Handler receives one event.
type Handler func(types.Event)

type subscription struct {
	eventType string
	fn        Handler
}

// Bus fans events out to handlers in subscription order.
type Bus struct {
	subs []subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// On subscribes fn to eventType, or to every type when eventType is Any.
func (b *Bus) On(eventType string, fn Handler) {
	if fn == nil {
		return
	}
	b.subs = append(b.subs, subscription{eventType: eventType, fn: fn})
}

// Dispatch delivers each event, in order, to every matching handler.
// Returns the number of deliveries made.
func (b *Bus) Dispatch(evts []types.Event) int {
	n := 0
	// Snapshot so a handler subscribing mid-pass is not called in this pass.
	subs := b.subs
	for _, ev := range evts {
		for _, s := range subs {
			if s.eventType != ev.Type && s.eventType != Any {
				continue
			}
			s.fn(ev)
			n++
		}
	}
	return n
}

// Len returns the number of subscriptions.
func (b *Bus) Len() int {
	return len(b.subs)
}
