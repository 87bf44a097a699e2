package world

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cory-johannsen/muddy/internal/game/actor"
)

// ErrNoSuchExit is returned by Move when the requested direction is not
// an exit of the actor's current location.
var ErrNoSuchExit = errors.New("no exit in that direction")

// ErrUnknownLocation is returned when a location ID is not part of the
// loaded world.
var ErrUnknownLocation = errors.New("unknown location")

// Store is the single source of truth for location data and monster
// occupancy. All methods are safe for concurrent use: exits are read-only
// between reloads, and occupant-set mutation is serialized by one mutex
// so spawns, deaths, and reads are linearizable.
type Store struct {
	mu        sync.RWMutex
	locations map[string]*Location
	occupants map[string]map[string]*actor.Monster // locationID → monsterID → monster
	byID      map[string]*actor.Monster
	counter   atomic.Uint64
}

// NewStore builds a Store from validated zones.
//
// Precondition: every zone must already pass Validate.
// Postcondition: Returns a Store with no occupants, or an error when two
// zones declare the same location ID.
func NewStore(zones []*Zone) (*Store, error) {
	locations := make(map[string]*Location)
	for _, zone := range zones {
		for id, loc := range zone.Locations {
			if _, exists := locations[id]; exists {
				return nil, fmt.Errorf("duplicate location ID %q", id)
			}
			locations[id] = loc
		}
	}
	return &Store{
		locations: locations,
		occupants: make(map[string]map[string]*actor.Monster),
		byID:      make(map[string]*actor.Monster),
	}, nil
}

// Reload replaces the location graph. Occupants are kept only for
// locations that still exist. This is the administrative path referenced
// by the exits read-only invariant.
//
// Precondition: every zone must already pass Validate.
func (s *Store) Reload(zones []*Zone) error {
	locations := make(map[string]*Location)
	for _, zone := range zones {
		for id, loc := range zone.Locations {
			if _, exists := locations[id]; exists {
				return fmt.Errorf("duplicate location ID %q", id)
			}
			locations[id] = loc
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = locations
	for locID, set := range s.occupants {
		if _, ok := locations[locID]; !ok {
			for id := range set {
				delete(s.byID, id)
			}
			delete(s.occupants, locID)
		}
	}
	return nil
}

// Location returns the location with the given ID.
//
// Postcondition: Returns (location, true) if found, or (nil, false).
func (s *Store) Location(id string) (*Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[id]
	return loc, ok
}

// LocationCount returns the number of loaded locations.
func (s *Store) LocationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

// LocationOf returns the location the actor currently occupies.
//
// Postcondition: Returns ErrUnknownLocation when the actor's location ID
// is not part of the loaded world.
func (s *Store) LocationOf(a *actor.Actor) (*Location, error) {
	loc, ok := s.Location(a.LocationID())
	if !ok {
		return nil, fmt.Errorf("actor %q at %q: %w", a.Name(), a.LocationID(), ErrUnknownLocation)
	}
	return loc, nil
}

// Move relocates the actor through the exit in the given direction.
// When the direction is not an exit of the current location, the actor
// is left unchanged and ErrNoSuchExit is returned.
//
// Postcondition: On success the actor's location ID equals the returned
// location's ID; on failure no state changes.
func (s *Store) Move(a *actor.Actor, dir Direction) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, ok := s.locations[a.LocationID()]
	if !ok {
		return nil, fmt.Errorf("actor %q at %q: %w", a.Name(), a.LocationID(), ErrUnknownLocation)
	}
	destID, ok := cur.Exits[dir]
	if !ok {
		return nil, ErrNoSuchExit
	}
	dest, ok := s.locations[destID]
	if !ok {
		return nil, fmt.Errorf("exit %q of %q: %w", dir, cur.ID, ErrUnknownLocation)
	}
	a.SetLocationID(dest.ID)
	return dest, nil
}

// Spawn instantiates a roster entry and registers the monster in its
// home location's occupant set.
//
// Precondition: def must pass Validate.
// Postcondition: Returns a live monster with a unique instance ID, or an
// error when the home location is unknown.
func (s *Store) Spawn(def MonsterDef) (*actor.Monster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[def.Location]; !ok {
		return nil, fmt.Errorf("spawning %q at %q: %w", def.Name, def.Location, ErrUnknownLocation)
	}

	n := s.counter.Add(1)
	id := fmt.Sprintf("%s-%s-%d", strings.ToLower(def.Name), def.Location, n)
	m := actor.NewMonster(id, def.Name, actor.Stats{
		MaxHP:   def.HP,
		Speed:   time.Duration(def.SpeedMs) * time.Millisecond,
		Attack:  def.Attack,
		Defense: def.Defense,
	}, def.Location, def.Skills, def.DefaultSkill)

	if s.occupants[def.Location] == nil {
		s.occupants[def.Location] = make(map[string]*actor.Monster)
	}
	s.occupants[def.Location][id] = m
	s.byID[id] = m
	return m, nil
}

// RemoveOccupant deletes the monster from the location's occupant set.
// Removing an absent monster is a no-op, which keeps death-driven
// removal idempotent.
func (s *Store) RemoveOccupant(locationID, monsterID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.occupants[locationID]
	if !ok {
		return
	}
	delete(set, monsterID)
	if len(set) == 0 {
		delete(s.occupants, locationID)
	}
	delete(s.byID, monsterID)
}

// OccupantsAt returns a snapshot of the monsters present in the location.
//
// Postcondition: Returns a non-nil slice (may be empty).
func (s *Store) OccupantsAt(locationID string) []*actor.Monster {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.occupants[locationID]
	if !ok {
		return []*actor.Monster{}
	}
	out := make([]*actor.Monster, 0, len(set))
	for _, m := range set {
		out = append(out, m)
	}
	return out
}

// FindOccupant returns a monster in locationID matched by name. An exact
// case-insensitive match wins over a prefix match.
//
// Postcondition: Returns (monster, true) on a match, or (nil, false).
func (s *Store) FindOccupant(locationID, name string) (*actor.Monster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.occupants[locationID]
	if !ok {
		return nil, false
	}

	lower := strings.ToLower(name)
	var prefix *actor.Monster
	for _, m := range set {
		mn := strings.ToLower(m.Name())
		if mn == lower {
			return m, true
		}
		if prefix == nil && strings.HasPrefix(mn, lower) {
			prefix = m
		}
	}
	if prefix != nil {
		return prefix, true
	}
	return nil, false
}

// Monster returns a live monster by instance ID.
//
// Postcondition: Returns (monster, true) if found, or (nil, false).
func (s *Store) Monster(id string) (*actor.Monster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok
}
