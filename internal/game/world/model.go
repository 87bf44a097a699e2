// Package world provides the world model (zones, locations, exits) and
// the live store that tracks monster occupancy and actor movement.
package world

import "fmt"

// Direction is a movement token keying a location exit.
type Direction string

// Standard compass directions and vertical movements.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Location is a node in the world graph.
//
// Invariant: Exits is read-only after world load except through
// administrative reload; occupancy lives in the Store, not here.
type Location struct {
	// ID uniquely identifies this location across the whole world.
	ID string
	// ZoneID identifies the zone this location belongs to.
	ZoneID string
	// Description is the text shown to players in this location.
	Description string
	// Exits maps direction tokens to destination location IDs.
	Exits map[Direction]string
}

// Exit returns the destination location ID for the given direction.
//
// Postcondition: Returns (id, true) if the exit exists, or ("", false).
func (l *Location) Exit(dir Direction) (string, bool) {
	dest, ok := l.Exits[dir]
	return dest, ok
}

// Zone groups related locations into a themed area.
type Zone struct {
	// ID uniquely identifies this zone.
	ID string
	// Name is the display name of the zone.
	Name string
	// Description summarizes the zone's theme.
	Description string
	// StartLocation is the ID of the default entry location.
	StartLocation string
	// Locations contains all locations in this zone, keyed by ID.
	Locations map[string]*Location
}

// Validate checks zone invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first
// violation.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone ID must not be empty")
	}
	if z.Name == "" {
		return fmt.Errorf("zone %q: name must not be empty", z.ID)
	}
	if z.StartLocation == "" {
		return fmt.Errorf("zone %q: start_location must not be empty", z.ID)
	}
	if len(z.Locations) == 0 {
		return fmt.Errorf("zone %q: must contain at least one location", z.ID)
	}
	if _, ok := z.Locations[z.StartLocation]; !ok {
		return fmt.Errorf("zone %q: start_location %q not found", z.ID, z.StartLocation)
	}
	for id, loc := range z.Locations {
		if loc.ID != id {
			return fmt.Errorf("zone %q: location key %q does not match ID %q", z.ID, id, loc.ID)
		}
		if loc.Description == "" {
			return fmt.Errorf("zone %q: location %q: description must not be empty", z.ID, id)
		}
		for dir, target := range loc.Exits {
			if target == "" {
				return fmt.Errorf("zone %q: location %q: exit %q has empty target", z.ID, id, dir)
			}
			if _, ok := z.Locations[target]; !ok {
				return fmt.Errorf("zone %q: location %q: exit %q targets unknown location %q", z.ID, id, dir, target)
			}
		}
	}
	return nil
}

// MonsterDef is one entry of the monster roster: a template tagged with
// its home location, merged into that location's occupants at load time.
type MonsterDef struct {
	// Name is the monster's display name.
	Name string
	// Location is the home location ID.
	Location string
	// HP is the maximum hit points.
	HP int
	// SpeedMs is the attack interval in milliseconds.
	SpeedMs int
	// Attack and Defense are the combat statistics.
	Attack  int
	Defense int
	// Skills are the known skill identifiers.
	Skills []string
	// DefaultSkill is the skill used when attacking unprompted.
	DefaultSkill string
	// Count is how many instances to place at load time (default 1).
	Count int
}

// Validate checks roster entry invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first
// violation.
func (d MonsterDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("monster: name must not be empty")
	}
	if d.Location == "" {
		return fmt.Errorf("monster %q: location must not be empty", d.Name)
	}
	if d.HP < 1 {
		return fmt.Errorf("monster %q: hp must be >= 1, got %d", d.Name, d.HP)
	}
	if d.SpeedMs < 1 {
		return fmt.Errorf("monster %q: speed_ms must be >= 1, got %d", d.Name, d.SpeedMs)
	}
	if d.DefaultSkill == "" {
		return fmt.Errorf("monster %q: default_skill must not be empty", d.Name)
	}
	if d.Count < 0 {
		return fmt.Errorf("monster %q: count must be >= 0, got %d", d.Name, d.Count)
	}
	return nil
}
