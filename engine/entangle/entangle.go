// Package entangle tracks the entanglement links of the level in play and
// reports their side-effects when a linked choice collapses.
package entangle

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nathoo/quantumroom/types"
)

const unpredictable = "Quantum effects are unpredictable..."

var descriptions = map[types.Correlation]string{
	types.CorrelationPositive: "Your choice resonates positively with entangled particles, amplifying the effect!",
	types.CorrelationNegative: "Quantum interference occurs, creating unexpected complications.",
	types.CorrelationNeutral:  "The entanglement maintains quantum neutrality, preserving balance.",
}

// Describe returns the effect text for a correlation type.
func Describe(c types.Correlation) string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return unpredictable
}

type entry struct {
	id   string
	link types.EntanglementLink
}

// Registry holds the links of the current level in registration order.
// It is owned by the orchestrator and never outlives one level load.
type Registry struct {
	entries []entry
	lastReg string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register installs a level's links under a fresh registration ID and
// returns that ID. Links already present are kept; callers Clear first
// when loading a new level.
func (r *Registry) Register(level types.Level) string {
	regID := uuid.NewString()
	for i, link := range level.Entanglements {
		r.entries = append(r.entries, entry{
			id:   fmt.Sprintf("%s/%d", regID, i),
			link: copyLink(link),
		})
	}
	r.lastReg = regID
	return regID
}

// EffectsFor returns one effect per registered link whose participants
// include choiceIndex, in registration order. Never nil.
func (r *Registry) EffectsFor(choiceIndex int) []types.EntanglementEffect {
	effects := []types.EntanglementEffect{}
	for _, e := range r.entries {
		if !contains(e.link.Participants, choiceIndex) {
			continue
		}
		effects = append(effects, types.EntanglementEffect{
			LinkID:      e.id,
			Type:        e.link.Correlation,
			Strength:    e.link.Strength,
			Description: Describe(e.link.Correlation),
		})
	}
	return effects
}

// Entangled reports whether choiceIndex participates in any link.
func (r *Registry) Entangled(choiceIndex int) bool {
	for _, e := range r.entries {
		if contains(e.link.Participants, choiceIndex) {
			return true
		}
	}
	return false
}

// Clear removes every link.
func (r *Registry) Clear() {
	r.entries = nil
	r.lastReg = ""
}

// Len returns the number of registered links.
func (r *Registry) Len() int {
	return len(r.entries)
}

// RegistrationID returns the ID of the most recent registration, or "" after Clear.
func (r *Registry) RegistrationID() string {
	return r.lastReg
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func copyLink(l types.EntanglementLink) types.EntanglementLink {
	l.Participants = append([]int(nil), l.Participants...)
	return l
}
