// Package cadence provides cancellable periodic tasks. Every repeating
// action in the engine (attack ticks, status checks, regeneration,
// session pushes, hint broadcasts) runs on a Cadence so that each one
// has an idempotent, always-reachable stop path.
package cadence

import (
	"sync"
	"time"
)

// Cadence invokes a callback at a fixed interval on its own goroutine
// until stopped. Stop is idempotent and safe to call from the callback
// itself or from any other goroutine, including concurrently.
type Cadence struct {
	stopOnce sync.Once
	done     chan struct{}
}

// Start launches a cadence firing fn every interval. The first firing
// happens one interval after Start, matching timer semantics.
//
// Precondition: interval must be > 0; fn must not be nil.
// Postcondition: Returns a running Cadence; fn fires once per interval
// until Stop is called.
func Start(interval time.Duration, fn func()) *Cadence {
	if interval <= 0 {
		panic("cadence.Start: interval must be > 0")
	}
	if fn == nil {
		panic("cadence.Start: fn must not be nil")
	}

	c := &Cadence{done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case <-c.done:
					// Stopped between the tick firing and selection; a
					// stopped cadence must never invoke fn again.
					return
				default:
				}
				fn()
			case <-c.done:
				return
			}
		}
	}()
	return c
}

// Stop terminates the cadence. Safe to call multiple times and from
// within fn.
//
// Postcondition: fn is not invoked after the current call (if any)
// returns.
func (c *Cadence) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Stopped reports whether Stop has been called.
func (c *Cadence) Stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
