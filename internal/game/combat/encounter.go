// Package combat runs encounters: transient pairings of two actors with
// independent attack cadences and a shared status/death-check cadence,
// terminated exactly once.
package combat

import (
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/muddy/internal/game/actor"
	"github.com/cory-johannsen/muddy/internal/game/cadence"
)

// State is an encounter's lifecycle position.
type State int32

const (
	// StateCreated is the window between claiming the actors and arming
	// the cadences.
	StateCreated State = iota
	// StateActive is the only state in which cadences fire.
	StateActive
	// StateResolved means the encounter ended through a death.
	StateResolved
	// StateCancelled means the encounter was externally cancelled.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateResolved:
		return "resolved"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateResolved || s == StateCancelled
}

// Encounter binds an initiating player to a target monster for the
// duration of one fight. The coordinator exclusively owns encounters;
// actors carry only the encounter ID as a back-reference.
type Encounter struct {
	id            string
	initiator     *actor.Player
	initiatorConn string
	target        *actor.Monster
	skill         string

	state     atomic.Int32
	terminate sync.Once

	cadMu       sync.Mutex
	cadences    []*cadence.Cadence
	cadsStopped bool
}

// ID returns the encounter identifier.
func (e *Encounter) ID() string { return e.id }

// State returns the current lifecycle state.
func (e *Encounter) State() State {
	return State(e.state.Load())
}

// Initiator returns the initiating player.
func (e *Encounter) Initiator() *actor.Player { return e.initiator }

// Target returns the target monster.
func (e *Encounter) Target() *actor.Monster { return e.target }

// active reports whether cadence callbacks should still do work.
func (e *Encounter) active() bool {
	return e.State() == StateActive
}

// arm records the encounter's cadences so the terminal paths can stop
// them. An external cancellation can land between claiming the actors
// and arming, so cadences arriving after stopCadences are stopped here
// instead of stored.
func (e *Encounter) arm(cads []*cadence.Cadence) {
	e.cadMu.Lock()
	stopped := e.cadsStopped
	if !stopped {
		e.cadences = cads
	}
	e.cadMu.Unlock()

	if stopped {
		for _, c := range cads {
			c.Stop()
		}
	}
}

// stopCadences stops all cadences armed for this encounter. Idempotent.
func (e *Encounter) stopCadences() {
	e.cadMu.Lock()
	cads := e.cadences
	e.cadences = nil
	e.cadsStopped = true
	e.cadMu.Unlock()

	for _, c := range cads {
		c.Stop()
	}
}
