// Package recovery runs passive regeneration for actors that are not
// engaged in combat.
package recovery

import (
	"sync"
	"time"

	"github.com/cory-johannsen/muddy/internal/game/actor"
	"github.com/cory-johannsen/muddy/internal/game/cadence"
)

// Engine owns one regeneration cadence per actor. Ensure and
// EnsureStopped are idempotent so callers can blindly (re)assert the
// desired state, and a dead actor's cadence stops permanently on the
// next tick. All methods are safe for concurrent use.
type Engine struct {
	interval time.Duration
	amount   int

	mu       sync.Mutex
	cadences map[string]*cadence.Cadence // actor ID → cadence
}

// NewEngine creates a recovery engine healing amount HP every interval.
//
// Precondition: interval must be > 0; amount must be > 0.
func NewEngine(interval time.Duration, amount int) *Engine {
	return &Engine{
		interval: interval,
		amount:   amount,
		cadences: make(map[string]*cadence.Cadence),
	}
}

// Ensure makes the actor regenerate: the regeneration flag is set and a
// cadence is started if none is running. Calling Ensure for an already
// regenerating actor is a no-op; calling it for a dead actor does
// nothing.
func (e *Engine) Ensure(a *actor.Actor) {
	if a.Dead() {
		return
	}
	a.SetRegenerating(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.cadences[a.ID()]; running {
		return
	}
	e.cadences[a.ID()] = cadence.Start(e.interval, func() { e.tick(a) })
}

// EnsureStopped makes the actor not regenerate. Safe to call for actors
// that never regenerated.
func (e *Engine) EnsureStopped(a *actor.Actor) {
	a.SetRegenerating(false)
	e.stopCadence(a.ID())
}

// Regenerating reports whether a cadence is running for the actor.
func (e *Engine) Regenerating(a *actor.Actor) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, running := e.cadences[a.ID()]
	return running
}

// Close stops every cadence the engine owns.
func (e *Engine) Close() {
	e.mu.Lock()
	all := e.cadences
	e.cadences = make(map[string]*cadence.Cadence)
	e.mu.Unlock()

	for _, c := range all {
		c.Stop()
	}
}

// tick applies one regeneration step. Death stops the cadence for good;
// an active encounter pauses healing without stopping the cadence, so
// regeneration resumes by itself when the encounter releases the actor.
func (e *Engine) tick(a *actor.Actor) {
	if a.Dead() {
		a.SetRegenerating(false)
		e.stopCadence(a.ID())
		return
	}
	if a.Engaged() || !a.Regenerating() {
		return
	}
	a.Heal(e.amount)
}

func (e *Engine) stopCadence(actorID string) {
	e.mu.Lock()
	c, ok := e.cadences[actorID]
	delete(e.cadences, actorID)
	e.mu.Unlock()

	if ok {
		c.Stop()
	}
}
