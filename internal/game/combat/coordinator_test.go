package combat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/muddy/internal/game/actor"
	"github.com/cory-johannsen/muddy/internal/game/recovery"
	"github.com/cory-johannsen/muddy/internal/game/world"
	"github.com/cory-johannsen/muddy/internal/gateway"
)

// recordingOutbound captures deliveries for assertion.
type recordingOutbound struct {
	mu     sync.Mutex
	events []gateway.Event
}

func (r *recordingOutbound) Deliver(connID string, evt gateway.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingOutbound) Broadcast(channel string, evt gateway.Event) {}

func (r *recordingOutbound) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingOutbound) notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, evt := range r.events {
		if n, ok := evt.(gateway.Notice); ok {
			out = append(out, n.Text)
		}
	}
	return out
}

func (r *recordingOutbound) statuses() []gateway.CombatStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []gateway.CombatStatus
	for _, evt := range r.events {
		if s, ok := evt.(gateway.CombatStatus); ok {
			out = append(out, s)
		}
	}
	return out
}

// alwaysHit never rolls the miss face.
type alwaysHit struct{}

func (alwaysHit) Intn(n int) int { return n - 1 }

func testZone() *world.Zone {
	return &world.Zone{
		ID:            "sewers",
		Name:          "The Sewers",
		Description:   "Damp tunnels under the city.",
		StartLocation: "gate",
		Locations: map[string]*world.Location{
			"gate": {
				ID:          "gate",
				ZoneID:      "sewers",
				Description: "A rusted gate.",
				Exits:       map[world.Direction]string{world.North: "tunnel"},
			},
			"tunnel": {
				ID:          "tunnel",
				ZoneID:      "sewers",
				Description: "A dripping tunnel.",
				Exits:       map[world.Direction]string{world.South: "gate"},
			},
		},
	}
}

type fixture struct {
	store    *world.Store
	recovery *recovery.Engine
	out      *recordingOutbound
	coord    *Coordinator
	deaths   atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := world.NewStore([]*world.Zone{testZone()})
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		recovery: recovery.NewEngine(5*time.Millisecond, 1),
		out:      &recordingOutbound{},
	}
	f.coord = NewCoordinator(Config{
		World:          store,
		Recovery:       f.recovery,
		Out:            f.out,
		Dice:           alwaysHit{},
		StatusInterval: 5 * time.Millisecond,
		OnDeath:        func(m *actor.Monster, locationID string) { f.deaths.Add(1) },
	})
	t.Cleanup(func() {
		f.coord.Close()
		f.recovery.Close()
	})
	return f
}

func (f *fixture) spawnRat(t *testing.T, hp, attack, defense int) *actor.Monster {
	t.Helper()
	m, err := f.store.Spawn(world.MonsterDef{
		Name: "Rat", Location: "gate", HP: hp, SpeedMs: 10,
		Attack: attack, Defense: defense,
		Skills: []string{"bite"}, DefaultSkill: "bite", Count: 1,
	})
	require.NoError(t, err)
	return m
}

func strongPlayer() *actor.Player {
	return actor.NewPlayer("ava", actor.Stats{
		MaxHP: 50, Speed: 10 * time.Millisecond, Attack: 10, Defense: 10,
	}, "gate", []string{"punch", "kick"}, "punch")
}

func weakPlayer() *actor.Player {
	return actor.NewPlayer("bo", actor.Stats{
		MaxHP: 5, Speed: 10 * time.Millisecond, Attack: 0, Defense: 0,
	}, "gate", []string{"punch"}, "punch")
}

func TestStart_TargetNotInRoom(t *testing.T) {
	f := newFixture(t)
	p := strongPlayer()

	_, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.ErrorIs(t, err, ErrTargetNotInRoom)
	assert.False(t, p.Engaged())
}

func TestStart_TargetDead(t *testing.T) {
	f := newFixture(t)
	rat := f.spawnRat(t, 5, 0, 0)
	rat.ApplyDamage(5)
	p := strongPlayer()

	_, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.ErrorIs(t, err, ErrTargetDead)
	assert.False(t, p.Engaged())
}

func TestStart_InitiatorAlreadyEngaged(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 500, 0, 50)
	p := strongPlayer()

	_, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	_, err = f.coord.Start(p, "conn-1", "Rat", "punch")
	require.ErrorIs(t, err, ErrAlreadyEngaged)
}

func TestStart_TargetAlreadyEngagedReleasesInitiator(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 500, 0, 50)
	first := strongPlayer()
	second := actor.NewPlayer("cleo", actor.Stats{
		MaxHP: 50, Speed: 10 * time.Millisecond, Attack: 10, Defense: 10,
	}, "gate", []string{"punch"}, "punch")

	_, err := f.coord.Start(first, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	_, err = f.coord.Start(second, "conn-2", "Rat", "punch")
	require.ErrorIs(t, err, ErrAlreadyEngaged)
	assert.False(t, second.Engaged(), "losing initiator must not stay claimed")
}

func TestStart_DefaultsSkill(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 500, 0, 50)
	p := strongPlayer()

	e, err := f.coord.Start(p, "conn-1", "Rat", "")
	require.NoError(t, err)
	assert.Equal(t, "punch", e.skill)
}

func TestEncounter_VictoryRemovesTargetOnce(t *testing.T) {
	f := newFixture(t)
	rat := f.spawnRat(t, 20, 0, 0)
	p := strongPlayer()

	e, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.State() == StateResolved
	}, 2*time.Second, 5*time.Millisecond)

	assert.True(t, rat.Dead())
	assert.Empty(t, f.store.OccupantsAt("gate"))
	assert.EqualValues(t, 1, f.deaths.Load())
	assert.False(t, p.Engaged())
	assert.False(t, rat.Engaged())

	victories := 0
	for _, n := range f.out.notices() {
		if n == "Victory! You have defeated Rat" {
			victories++
		}
	}
	assert.Equal(t, 1, victories)

	_, ok := f.coord.Active(p.ID())
	assert.False(t, ok)
}

func TestEncounter_DefeatRevivesInitiator(t *testing.T) {
	f := newFixture(t)
	rat := f.spawnRat(t, 500, 20, 50)
	p := weakPlayer()

	e, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.State() == StateResolved
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, p.Dead(), "defeated player is revived")
	assert.Equal(t, 1, p.HP())
	assert.False(t, rat.Dead())
	assert.False(t, rat.Engaged(), "release lets recovery resume")
	assert.Zero(t, f.deaths.Load())
	assert.Contains(t, f.out.notices(), "You have been defeated by Rat!")
}

func TestEncounter_StatusTickPushesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 500, 0, 50)
	p := strongPlayer()

	_, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(f.out.statuses()) > 0
	}, time.Second, 5*time.Millisecond)

	s := f.out.statuses()[0]
	assert.Equal(t, "ava", s.InitiatorName)
	assert.Equal(t, "Rat", s.TargetName)
}

func TestCancelForConnection_StopsAllCadences(t *testing.T) {
	f := newFixture(t)
	rat := f.spawnRat(t, 500, 0, 50)
	p := strongPlayer()

	e, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	f.coord.CancelForConnection("conn-1")
	assert.Equal(t, StateCancelled, e.State())
	assert.False(t, p.Engaged())
	assert.False(t, rat.Engaged())
	assert.Len(t, f.store.OccupantsAt("gate"), 1, "cancel leaves the target in place")

	// No further deliveries once every cadence is stopped.
	time.Sleep(30 * time.Millisecond)
	before := f.out.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, f.out.count())
}

func TestCancelForActor_InitiatorMove(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 500, 0, 50)
	p := strongPlayer()

	e, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	f.coord.CancelForActor(p.ID())
	assert.Equal(t, StateCancelled, e.State())

	_, ok := f.coord.Active(p.ID())
	assert.False(t, ok)
}

func TestCancelRacingStart_StopsEveryCadence(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 500, 0, 50)

	// A cancellation can land between claiming the actors and arming
	// the cadences. Whichever side loses the race, every started
	// cadence must still end up stopped.
	for i := 0; i < 50; i++ {
		p := strongPlayer()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.coord.CancelForConnection("conn-1")
		}()
		e, err := f.coord.Start(p, "conn-1", "Rat", "punch")
		require.NoError(t, err)
		wg.Wait()
		f.coord.CancelForConnection("conn-1")
		require.True(t, e.State().Terminal())
		require.False(t, p.Engaged())
	}

	time.Sleep(30 * time.Millisecond)
	before := f.out.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, f.out.count(), "stray cadence kept ticking")
}

func TestCancel_AfterResolveIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.spawnRat(t, 10, 0, 0)
	p := strongPlayer()

	e, err := f.coord.Start(p, "conn-1", "Rat", "punch")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.State() == StateResolved
	}, 2*time.Second, 5*time.Millisecond)

	f.coord.CancelForConnection("conn-1")
	assert.Equal(t, StateResolved, e.State(), "terminal state is absorbing")
	assert.EqualValues(t, 1, f.deaths.Load())
}
