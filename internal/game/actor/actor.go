// Package actor provides the shared combat entity model: players and
// monsters carry the same stats and obey the same damage, death, and
// regeneration rules.
package actor

import (
	"sync"
	"time"
)

// Kind distinguishes the two actor variants.
type Kind string

const (
	// KindPlayer is an authenticated, connection-backed actor.
	KindPlayer Kind = "player"
	// KindMonster is a world-spawned actor occupying a location.
	KindMonster Kind = "monster"
)

// Stats holds the immutable combat statistics of an actor.
// Fields are fixed at creation; only HP varies over an actor's life.
type Stats struct {
	// MaxHP is the hit point ceiling. Must be > 0.
	MaxHP int
	// Speed is the interval between this actor's attacks.
	Speed time.Duration
	// Attack is the base outgoing damage before defense.
	Attack int
	// Defense reduces incoming damage point for point.
	Defense int
}

// Actor is the shared mutable state of a player or monster.
// All mutating methods are safe for concurrent use; HP, death, location,
// regeneration, and the encounter back-reference are guarded by one mutex
// so that damage application and the death transition are atomic with
// respect to every cadence touching the same actor.
type Actor struct {
	id           string
	name         string
	kind         Kind
	stats        Stats
	skills       []string
	defaultSkill string

	mu          sync.Mutex
	hp          int
	locationID  string
	dead        bool
	regenerating bool
	encounterID string
}

// New creates a live actor at full HP in the given location.
//
// Precondition: id and name must be non-empty; stats.MaxHP must be > 0;
// stats.Speed must be > 0.
func New(id, name string, kind Kind, stats Stats, locationID string, skills []string, defaultSkill string) *Actor {
	return &Actor{
		id:           id,
		name:         name,
		kind:         kind,
		stats:        stats,
		skills:       append([]string(nil), skills...),
		defaultSkill: defaultSkill,
		hp:           stats.MaxHP,
		locationID:   locationID,
	}
}

// ID returns the actor's unique identifier (username for players,
// instance ID for monsters).
func (a *Actor) ID() string { return a.id }

// Name returns the actor's display name.
func (a *Actor) Name() string { return a.name }

// Kind returns the actor variant.
func (a *Actor) Kind() Kind { return a.kind }

// Stats returns the actor's immutable combat statistics.
func (a *Actor) Stats() Stats { return a.stats }

// DefaultSkill returns the skill used when none is requested.
func (a *Actor) DefaultSkill() string { return a.defaultSkill }

// Skills returns a copy of the actor's known skill identifiers.
func (a *Actor) Skills() []string {
	return append([]string(nil), a.skills...)
}

// HasSkill reports whether the actor knows the given skill.
func (a *Actor) HasSkill(skill string) bool {
	for _, s := range a.skills {
		if s == skill {
			return true
		}
	}
	return false
}

// HP returns the current hit points.
//
// Postcondition: 0 <= HP() <= Stats().MaxHP.
func (a *Actor) HP() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hp
}

// Dead reports whether the actor's death transition has occurred.
func (a *Actor) Dead() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dead
}

// LocationID returns the actor's current location.
func (a *Actor) LocationID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locationID
}

// SetLocationID moves the actor to the given location.
//
// Precondition: locationID must identify a loaded location; exit
// validation is the world store's responsibility.
func (a *Actor) SetLocationID(locationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locationID = locationID
}

// ApplyDamage decrements HP by amount, clamped at 0.
// Damage to a dead actor is a no-op. The returned died flag is true only
// for the call that performed the false→true death transition, so death
// side effects observed through it fire at most once per life.
//
// Precondition: amount must be >= 0.
// Postcondition: 0 <= hp <= MaxHP; dead implies hp == 0.
func (a *Actor) ApplyDamage(amount int) (hp int, died bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dead || amount <= 0 {
		return a.hp, false
	}
	a.hp -= amount
	if a.hp <= 0 {
		a.hp = 0
		a.dead = true
		a.regenerating = false
		return 0, true
	}
	return a.hp, false
}

// Heal increments HP by amount, clamped at MaxHP. Healing a dead actor
// is a no-op.
//
// Precondition: amount must be >= 0.
// Postcondition: 0 <= hp <= MaxHP.
func (a *Actor) Heal(amount int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dead || amount <= 0 {
		return a.hp
	}
	a.hp += amount
	if a.hp > a.stats.MaxHP {
		a.hp = a.stats.MaxHP
	}
	return a.hp
}

// Revive resets a dead actor to the given HP. This is the respawn/reset
// entry point; it is the only way the dead flag returns to false.
//
// Precondition: hp must be in [1, MaxHP].
func (a *Actor) Revive(hp int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if hp < 1 {
		hp = 1
	}
	if hp > a.stats.MaxHP {
		hp = a.stats.MaxHP
	}
	a.hp = hp
	a.dead = false
}

// SetRegenerating records whether passive recovery should run for this
// actor. Both directions are idempotent; enabling regeneration on a dead
// actor is refused.
func (a *Actor) SetRegenerating(active bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if active && a.dead {
		return
	}
	a.regenerating = active
}

// Regenerating reports whether passive recovery is enabled.
func (a *Actor) Regenerating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.regenerating
}

// ClaimEncounter atomically records encounterID as the actor's active
// encounter. The claim fails if the actor is dead or already engaged,
// which is what prevents two encounters from racing onto one actor.
//
// Precondition: encounterID must be non-empty.
// Postcondition: Returns true iff the actor now references encounterID.
func (a *Actor) ClaimEncounter(encounterID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dead || a.encounterID != "" {
		return false
	}
	a.encounterID = encounterID
	return true
}

// ReleaseEncounter clears the encounter back-reference iff it matches
// encounterID. Safe to call multiple times.
func (a *Actor) ReleaseEncounter(encounterID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.encounterID == encounterID {
		a.encounterID = ""
	}
}

// EncounterID returns the active encounter back-reference, or "" when
// the actor is not engaged.
func (a *Actor) EncounterID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.encounterID
}

// Engaged reports whether the actor owns an active encounter reference.
func (a *Actor) Engaged() bool {
	return a.EncounterID() != ""
}
