package world

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/muddy/internal/game/actor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore([]*Zone{validZone()})
	require.NoError(t, err)
	return s
}

func ratDef() MonsterDef {
	return MonsterDef{Name: "Rat", Location: "tunnel", HP: 20, SpeedMs: 800, Attack: 3, DefaultSkill: "bite", Count: 1}
}

func testPlayer(location string) *actor.Player {
	return actor.NewPlayer("ava", actor.Stats{
		MaxHP: 30, Speed: 500 * time.Millisecond, Attack: 10, Defense: 2,
	}, location, []string{"punch"}, "punch")
}

func TestNewStore_DuplicateLocation(t *testing.T) {
	a := validZone()
	b := validZone()
	b.ID = "other"
	_, err := NewStore([]*Zone{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate location")
}

func TestMove_ThroughExit(t *testing.T) {
	s := newTestStore(t)
	p := testPlayer("gate")

	dest, err := s.Move(p.Actor, North)
	require.NoError(t, err)
	assert.Equal(t, "tunnel", dest.ID)
	assert.Equal(t, "tunnel", p.LocationID())
}

func TestMove_NoSuchExitLeavesStateUnchanged(t *testing.T) {
	s := newTestStore(t)
	p := testPlayer("gate")

	_, err := s.Move(p.Actor, West)
	require.ErrorIs(t, err, ErrNoSuchExit)
	assert.Equal(t, "gate", p.LocationID())
}

func TestMove_UnknownCurrentLocation(t *testing.T) {
	s := newTestStore(t)
	p := testPlayer("limbo")

	_, err := s.Move(p.Actor, North)
	require.ErrorIs(t, err, ErrUnknownLocation)
}

func TestLocationOf(t *testing.T) {
	s := newTestStore(t)
	p := testPlayer("gate")

	loc, err := s.LocationOf(p.Actor)
	require.NoError(t, err)
	assert.Equal(t, "gate", loc.ID)
}

func TestSpawn_RegistersOccupant(t *testing.T) {
	s := newTestStore(t)

	m, err := s.Spawn(ratDef())
	require.NoError(t, err)
	assert.Equal(t, "Rat", m.Name())
	assert.Equal(t, "tunnel", m.HomeLocation)
	assert.Equal(t, 20, m.HP())

	occ := s.OccupantsAt("tunnel")
	require.Len(t, occ, 1)
	assert.Same(t, m, occ[0])

	got, ok := s.Monster(m.ID())
	require.True(t, ok)
	assert.Same(t, m, got)
}

func TestSpawn_UniqueInstanceIDs(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Spawn(ratDef())
	require.NoError(t, err)
	b, err := s.Spawn(ratDef())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, s.OccupantsAt("tunnel"), 2)
}

func TestSpawn_UnknownLocation(t *testing.T) {
	s := newTestStore(t)
	def := ratDef()
	def.Location = "void"
	_, err := s.Spawn(def)
	require.ErrorIs(t, err, ErrUnknownLocation)
}

func TestRemoveOccupant_Idempotent(t *testing.T) {
	s := newTestStore(t)
	m, err := s.Spawn(ratDef())
	require.NoError(t, err)

	s.RemoveOccupant("tunnel", m.ID())
	assert.Empty(t, s.OccupantsAt("tunnel"))
	_, ok := s.Monster(m.ID())
	assert.False(t, ok)

	// A second removal (racing death checks) must be harmless.
	s.RemoveOccupant("tunnel", m.ID())
	assert.Empty(t, s.OccupantsAt("tunnel"))
}

func TestFindOccupant_ExactBeatsPrefix(t *testing.T) {
	s := newTestStore(t)
	def := ratDef()
	def.Name = "Ratling"
	_, err := s.Spawn(def)
	require.NoError(t, err)
	rat, err := s.Spawn(ratDef())
	require.NoError(t, err)

	found, ok := s.FindOccupant("tunnel", "rat")
	require.True(t, ok)
	assert.Same(t, rat.Actor, found.Actor)

	_, ok = s.FindOccupant("tunnel", "dragon")
	assert.False(t, ok)

	_, ok = s.FindOccupant("gate", "rat")
	assert.False(t, ok, "occupants are scoped to their location")
}

func TestReload_KeepsOccupantsOfSurvivingLocations(t *testing.T) {
	s := newTestStore(t)
	m, err := s.Spawn(ratDef())
	require.NoError(t, err)

	// Reload with a world that no longer has the tunnel.
	z := validZone()
	delete(z.Locations, "tunnel")
	delete(z.Locations["gate"].Exits, North)
	require.NoError(t, s.Reload([]*Zone{z}))

	assert.Empty(t, s.OccupantsAt("tunnel"))
	_, ok := s.Monster(m.ID())
	assert.False(t, ok)
	_, ok = s.Location("gate")
	assert.True(t, ok)
}

func TestStore_ConcurrentMovesAndRemovals(t *testing.T) {
	s := newTestStore(t)
	m, err := s.Spawn(ratDef())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		p := testPlayer("gate")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if p.LocationID() == "gate" {
					_, _ = s.Move(p.Actor, North)
				} else {
					_, _ = s.Move(p.Actor, South)
				}
				_ = s.OccupantsAt("tunnel")
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RemoveOccupant("tunnel", m.ID())
	}()
	wg.Wait()

	assert.Empty(t, s.OccupantsAt("tunnel"))
}
