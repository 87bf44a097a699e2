package combat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/game/actor"
	"github.com/cory-johannsen/muddy/internal/game/cadence"
	"github.com/cory-johannsen/muddy/internal/game/dice"
	"github.com/cory-johannsen/muddy/internal/game/recovery"
	"github.com/cory-johannsen/muddy/internal/game/world"
	"github.com/cory-johannsen/muddy/internal/gateway"
)

// defaultStatusInterval is the cadence of the combat status push and
// death check when the coordinator is not configured otherwise.
const defaultStatusInterval = 500 * time.Millisecond

var (
	// ErrAlreadyEngaged is returned when either side of a requested
	// encounter already owns an active encounter.
	ErrAlreadyEngaged = errors.New("combat: actor already engaged")
	// ErrTargetDead is returned when the requested target is dead.
	ErrTargetDead = errors.New("combat: target is dead")
	// ErrTargetNotInRoom is returned when the requested target does not
	// occupy the initiator's location.
	ErrTargetNotInRoom = errors.New("combat: target not in room")
)

// DeathHook runs after a monster's death is committed and the corpse has
// been removed from its location. Called at most once per encounter.
type DeathHook func(m *actor.Monster, locationID string)

// Config carries the coordinator's collaborators.
type Config struct {
	World    *world.Store
	Recovery *recovery.Engine
	Out      gateway.Outbound
	Dice     dice.Source
	// StatusInterval overrides the status/death-check cadence.
	// Zero selects the default.
	StatusInterval time.Duration
	// OnDeath, when set, runs after each monster death.
	OnDeath DeathHook
	Logger  *zap.Logger
}

// Coordinator owns every active encounter. It arms the per-encounter
// cadences, applies damage through the actors' own serialization, and
// guarantees that each encounter terminates exactly once.
type Coordinator struct {
	world          *world.Store
	recovery       *recovery.Engine
	out            gateway.Outbound
	dice           dice.Source
	statusInterval time.Duration
	onDeath        DeathHook
	logger         *zap.Logger

	mu         sync.Mutex
	encounters map[string]*Encounter
	byActor    map[string]*Encounter
	byConn     map[string]*Encounter
}

// NewCoordinator creates a coordinator with no active encounters.
//
// Precondition: cfg.World, cfg.Recovery, and cfg.Out must be non-nil.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Dice == nil {
		cfg.Dice = dice.NewCryptoSource()
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = defaultStatusInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Coordinator{
		world:          cfg.World,
		recovery:       cfg.Recovery,
		out:            cfg.Out,
		dice:           cfg.Dice,
		statusInterval: cfg.StatusInterval,
		onDeath:        cfg.OnDeath,
		logger:         cfg.Logger,
		encounters:     make(map[string]*Encounter),
		byActor:        make(map[string]*Encounter),
		byConn:         make(map[string]*Encounter),
	}
}

// Start begins an encounter between the player and the named monster in
// the player's current location. On any error no state is mutated: the
// player is not engaged, the target is not engaged, and no cadence runs.
//
// Precondition: p must be alive and connID must identify p's connection.
// Postcondition: On success the returned encounter is Active and both
// actors reference it.
func (c *Coordinator) Start(p *actor.Player, connID, targetName, skill string) (*Encounter, error) {
	target, ok := c.world.FindOccupant(p.LocationID(), targetName)
	if !ok {
		return nil, ErrTargetNotInRoom
	}
	if target.Dead() {
		return nil, ErrTargetDead
	}
	if skill == "" {
		skill = p.DefaultSkill()
	}

	id := uuid.NewString()
	if !p.ClaimEncounter(id) {
		return nil, ErrAlreadyEngaged
	}
	if !target.ClaimEncounter(id) {
		p.ReleaseEncounter(id)
		return nil, ErrAlreadyEngaged
	}

	// Engaging also arms the target's passive recovery so it resumes
	// healing the moment the encounter releases it.
	c.recovery.Ensure(target.Actor)

	e := &Encounter{
		id:            id,
		initiator:     p,
		initiatorConn: connID,
		target:        target,
		skill:         skill,
	}
	e.state.Store(int32(StateActive))

	c.mu.Lock()
	c.encounters[id] = e
	c.byActor[p.ID()] = e
	c.byActor[target.ID()] = e
	c.byConn[connID] = e
	c.mu.Unlock()

	e.arm([]*cadence.Cadence{
		cadence.Start(p.Stats().Speed, func() { c.initiatorAttack(e) }),
		cadence.Start(target.Stats().Speed, func() { c.targetAttack(e) }),
		cadence.Start(c.statusInterval, func() { c.statusTick(e) }),
	})

	c.logger.Info("encounter started",
		zap.String("encounter", id),
		zap.String("initiator", p.ID()),
		zap.String("target", target.ID()),
		zap.String("skill", skill))
	return e, nil
}

// Active returns the actor's current encounter, if any.
func (c *Coordinator) Active(actorID string) (*Encounter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byActor[actorID]
	return e, ok
}

// CancelForActor cancels the actor's encounter, if any. Used when the
// initiator moves out of the room.
func (c *Coordinator) CancelForActor(actorID string) {
	c.mu.Lock()
	e := c.byActor[actorID]
	c.mu.Unlock()
	if e != nil {
		c.cancel(e)
	}
}

// CancelForConnection cancels the encounter owned by the connection, if
// any. Used on disconnect and session supersede.
func (c *Coordinator) CancelForConnection(connID string) {
	c.mu.Lock()
	e := c.byConn[connID]
	c.mu.Unlock()
	if e != nil {
		c.cancel(e)
	}
}

// Close cancels every active encounter.
func (c *Coordinator) Close() {
	c.mu.Lock()
	all := make([]*Encounter, 0, len(c.encounters))
	for _, e := range c.encounters {
		all = append(all, e)
	}
	c.mu.Unlock()
	for _, e := range all {
		c.cancel(e)
	}
}

// initiatorAttack is one swing of the initiator at the target.
func (c *Coordinator) initiatorAttack(e *Encounter) {
	if !e.active() || e.initiator.Dead() || e.target.Dead() {
		return
	}
	dmg := actor.Damage(e.initiator.Actor, e.target.Actor, e.skill, c.dice)
	if dmg == 0 {
		c.notify(e, fmt.Sprintf("You missed %s!", e.target.Name()))
		return
	}
	e.target.ApplyDamage(dmg)
	c.notify(e, fmt.Sprintf("You %s %s for %d damage!", e.skill, e.target.Name(), dmg))
}

// targetAttack is one swing of the target at the initiator, always with
// the target's default skill.
func (c *Coordinator) targetAttack(e *Encounter) {
	if !e.active() || e.initiator.Dead() || e.target.Dead() {
		return
	}
	skill := e.target.DefaultSkill()
	dmg := actor.Damage(e.target.Actor, e.initiator.Actor, skill, c.dice)
	if dmg == 0 {
		c.notify(e, fmt.Sprintf("%s missed you!", e.target.Name()))
		return
	}
	e.initiator.ApplyDamage(dmg)
	c.notify(e, fmt.Sprintf("%s %ss you for %d damage!", e.target.Name(), skill, dmg))
}

// statusTick pushes the periodic combat snapshot and performs the death
// check that ends the encounter.
func (c *Coordinator) statusTick(e *Encounter) {
	if !e.active() {
		return
	}
	c.out.Deliver(e.initiatorConn, gateway.CombatStatus{
		InitiatorName: e.initiator.Name(),
		InitiatorHP:   e.initiator.HP(),
		TargetName:    e.target.Name(),
		TargetHP:      e.target.HP(),
	})
	if e.target.Dead() {
		c.resolve(e)
		return
	}
	if e.initiator.Dead() {
		c.defeat(e)
	}
}

// resolve ends an encounter through the target's death: the corpse is
// removed from the world, the death hook fires, and the target's
// recovery cadence is retired. Runs its body at most once.
func (c *Coordinator) resolve(e *Encounter) {
	e.terminate.Do(func() {
		e.state.Store(int32(StateResolved))
		e.stopCadences()
		c.unregister(e)

		loc := e.target.LocationID()
		c.world.RemoveOccupant(loc, e.target.ID())
		if c.onDeath != nil {
			c.onDeath(e.target, loc)
		}
		c.recovery.EnsureStopped(e.target.Actor)

		e.target.ReleaseEncounter(e.id)
		e.initiator.ReleaseEncounter(e.id)

		c.notify(e, fmt.Sprintf("Victory! You have defeated %s", e.target.Name()))
		c.logger.Info("encounter resolved",
			zap.String("encounter", e.id),
			zap.String("target", e.target.ID()))
	})
}

// defeat ends an encounter through the initiator's death. The player is
// revived at 1 HP; releasing the target lets its recovery cadence heal
// it back up. Runs its body at most once.
func (c *Coordinator) defeat(e *Encounter) {
	e.terminate.Do(func() {
		e.state.Store(int32(StateResolved))
		e.stopCadences()
		c.unregister(e)

		e.target.ReleaseEncounter(e.id)
		e.initiator.ReleaseEncounter(e.id)
		e.initiator.Revive(1)

		c.notify(e, fmt.Sprintf("You have been defeated by %s!", e.target.Name()))
		c.logger.Info("encounter lost",
			zap.String("encounter", e.id),
			zap.String("initiator", e.initiator.ID()))
	})
}

// cancel ends an encounter without a death. No hook fires and the
// target keeps its recovery cadence, so it heals back to full.
func (c *Coordinator) cancel(e *Encounter) {
	e.terminate.Do(func() {
		e.state.Store(int32(StateCancelled))
		e.stopCadences()
		c.unregister(e)

		e.target.ReleaseEncounter(e.id)
		e.initiator.ReleaseEncounter(e.id)

		c.logger.Info("encounter cancelled", zap.String("encounter", e.id))
	})
}

func (c *Coordinator) unregister(e *Encounter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.encounters, e.id)
	delete(c.byActor, e.initiator.ID())
	delete(c.byActor, e.target.ID())
	delete(c.byConn, e.initiatorConn)
}

func (c *Coordinator) notify(e *Encounter, text string) {
	c.out.Deliver(e.initiatorConn, gateway.Notice{Text: text})
}
