// Package session tracks authenticated connections. The registry owns
// the mapping from usernames and connection IDs to live sessions, the
// hydrated player actors, and each session's periodic state push.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/auth"
	"github.com/cory-johannsen/muddy/internal/game/actor"
	"github.com/cory-johannsen/muddy/internal/game/cadence"
	"github.com/cory-johannsen/muddy/internal/game/recovery"
	"github.com/cory-johannsen/muddy/internal/game/world"
	"github.com/cory-johannsen/muddy/internal/gateway"
	"github.com/cory-johannsen/muddy/internal/storage"
)

// defaultPushInterval is how often a session's location and stats are
// pushed when not configured otherwise.
const defaultPushInterval = time.Second

// Defaults describes a freshly registered player.
type Defaults struct {
	Stats         actor.Stats
	Skills        []string
	DefaultSkill  string
	StartLocation string
}

// Session is one authenticated connection bound to a player actor.
type Session struct {
	connID string
	player *actor.Player
	push   *cadence.Cadence
}

// ConnID returns the owning connection identifier.
func (s *Session) ConnID() string { return s.connID }

// Player returns the bound player actor.
func (s *Session) Player() *actor.Player { return s.player }

// Config carries the registry's collaborators.
type Config struct {
	World    *world.Store
	Players  storage.PlayerStore
	Verifier *auth.Verifier
	Recovery *recovery.Engine
	Out      gateway.Outbound
	// PushInterval overrides the periodic state push cadence. Zero
	// selects the default.
	PushInterval time.Duration
	Defaults     Defaults
	Logger       *zap.Logger
}

// Registry owns every live session and every hydrated player actor.
// At most one session exists per username and per connection; a login
// for a username with a live session supersedes the old session.
type Registry struct {
	world        *world.Store
	players      storage.PlayerStore
	verifier     *auth.Verifier
	recovery     *recovery.Engine
	out          gateway.Outbound
	pushInterval time.Duration
	defaults     Defaults
	logger       *zap.Logger

	mu     sync.Mutex
	actors map[string]*actor.Player
	byUser map[string]*Session
	byConn map[string]*Session
}

// NewRegistry creates an empty registry.
//
// Precondition: cfg.World, cfg.Players, cfg.Verifier, cfg.Recovery, and
// cfg.Out must be non-nil.
func NewRegistry(cfg Config) *Registry {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		world:        cfg.World,
		players:      cfg.Players,
		verifier:     cfg.Verifier,
		recovery:     cfg.Recovery,
		out:          cfg.Out,
		pushInterval: cfg.PushInterval,
		defaults:     cfg.Defaults,
		logger:       cfg.Logger,
		actors:       make(map[string]*actor.Player),
		byUser:       make(map[string]*Session),
		byConn:       make(map[string]*Session),
	}
}

// Hydrate loads every persisted player snapshot into memory. Call once
// at startup before serving intents.
func (r *Registry) Hydrate(ctx context.Context) error {
	recs, err := r.players.LoadPlayers(ctx)
	if err != nil {
		return fmt.Errorf("loading players: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		p := actor.NewPlayer(rec.Username, actor.Stats{
			MaxHP:   rec.MaxHP,
			Speed:   time.Duration(rec.SpeedMs) * time.Millisecond,
			Attack:  rec.Attack,
			Defense: rec.Defense,
		}, rec.LocationID, rec.Skills, rec.DefaultSkill)
		if rec.HP < rec.MaxHP {
			p.ApplyDamage(rec.MaxHP - rec.HP)
		}
		r.actors[rec.Username] = p
	}
	r.logger.Info("players hydrated", zap.Int("count", len(recs)))
	return nil
}

// Register creates a new player with default stats at the start
// location and stores its credential.
//
// Postcondition: Returns storage.ErrDuplicateUsername when the username
// is taken; on success the player exists in memory and on disk.
func (r *Registry) Register(ctx context.Context, username, secret string) error {
	if err := r.verifier.Register(ctx, username, secret); err != nil {
		return err
	}

	p := actor.NewPlayer(username, r.defaults.Stats, r.defaults.StartLocation,
		r.defaults.Skills, r.defaults.DefaultSkill)

	r.mu.Lock()
	r.actors[username] = p
	r.mu.Unlock()

	r.snapshotAll(ctx)
	r.logger.Info("player registered", zap.String("username", username))
	return nil
}

// Login verifies the credential and binds the connection to the
// player's actor. A live session for the same username is superseded:
// its push cadence stops and its connection ID is returned so the
// caller can notify it and tear down its encounters.
//
// Postcondition: On success the session is live, the player regenerates,
// and the state push cadence runs until Disconnect.
func (r *Registry) Login(ctx context.Context, connID, username, secret string) (sess *Session, superseded string, err error) {
	if err := r.verifier.Verify(ctx, connID, username, secret); err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	p, ok := r.actors[username]
	if !ok {
		// A credential without a snapshot means the player save failed
		// at registration; treat it as a bad login.
		r.mu.Unlock()
		return nil, "", auth.ErrInvalidCredentials
	}
	if old := r.byUser[username]; old != nil {
		old.push.Stop()
		delete(r.byConn, old.connID)
		superseded = old.connID
	}
	sess = &Session{connID: connID, player: p}
	// The cadence starts before the session is published so Disconnect
	// always finds a stoppable push.
	sess.push = cadence.Start(r.pushInterval, func() { r.pushState(sess) })
	r.byUser[username] = sess
	r.byConn[connID] = sess
	r.mu.Unlock()

	r.recovery.Ensure(p.Actor)

	r.snapshotAll(ctx)
	r.logger.Info("player logged in",
		zap.String("username", username),
		zap.String("conn", connID),
		zap.String("superseded", superseded))
	return sess, superseded, nil
}

// Disconnect tears down the connection's session: the push cadence and
// regeneration stop and the player snapshot is saved. Unknown
// connections are a no-op.
func (r *Registry) Disconnect(ctx context.Context, connID string) (username string, ok bool) {
	r.mu.Lock()
	sess := r.byConn[connID]
	if sess == nil {
		r.mu.Unlock()
		return "", false
	}
	delete(r.byConn, connID)
	if r.byUser[sess.player.ID()] == sess {
		delete(r.byUser, sess.player.ID())
	}
	r.mu.Unlock()

	sess.push.Stop()
	r.recovery.EnsureStopped(sess.player.Actor)

	r.snapshotAll(ctx)
	r.logger.Info("player disconnected",
		zap.String("username", sess.player.ID()), zap.String("conn", connID))
	return sess.player.ID(), true
}

// ByConn returns the session owned by the connection.
func (r *Registry) ByConn(connID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byConn[connID]
	return s, ok
}

// ByUser returns the live session for the username.
func (r *Registry) ByUser(username string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byUser[username]
	return s, ok
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}

// Close disconnects every live session, saving each player.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	conns := make([]string, 0, len(r.byConn))
	for id := range r.byConn {
		conns = append(conns, id)
	}
	r.mu.Unlock()
	for _, id := range conns {
		r.Disconnect(ctx, id)
	}
}

// PushState sends the session's location and stats snapshots
// immediately, outside the cadence. Used right after login and moves so
// the client does not wait out the push interval.
func (r *Registry) PushState(sess *Session) {
	r.pushState(sess)
}

func (r *Registry) pushState(sess *Session) {
	p := sess.player
	loc, err := r.world.LocationOf(p.Actor)
	if err != nil {
		r.logger.Warn("state push skipped",
			zap.String("username", p.ID()), zap.Error(err))
		return
	}

	exits := make(map[string]string, len(loc.Exits))
	for dir, dest := range loc.Exits {
		exits[string(dir)] = dest
	}
	occupants := r.world.OccupantsAt(loc.ID)
	infos := make([]gateway.OccupantInfo, 0, len(occupants))
	for _, m := range occupants {
		infos = append(infos, gateway.OccupantInfo{Name: m.Name(), HP: m.HP(), Dead: m.Dead()})
	}
	r.out.Deliver(sess.connID, gateway.LocationSnapshot{
		ID:          loc.ID,
		Description: loc.Description,
		Exits:       exits,
		Occupants:   infos,
	})

	stats := p.Stats()
	r.out.Deliver(sess.connID, gateway.StatsSnapshot{
		Name:       p.Name(),
		LocationID: loc.ID,
		HP:         p.HP(),
		MaxHP:      stats.MaxHP,
		Attack:     stats.Attack,
		Defense:    stats.Defense,
		SpeedMs:    int(stats.Speed / time.Millisecond),
		Skills:     p.Skills(),
		Dead:       p.Dead(),
	})
}

// record snapshots an actor for persistence.
// snapshotAll serializes every hydrated player through the adapter, so
// bystanders' HP and location changes are flushed on each session
// transition, not only their own. Failures are logged, never retried,
// and never fail the triggering operation.
func (r *Registry) snapshotAll(ctx context.Context) {
	r.mu.Lock()
	recs := make([]storage.PlayerRecord, 0, len(r.actors))
	for _, p := range r.actors {
		recs = append(recs, record(p))
	}
	r.mu.Unlock()

	for _, rec := range recs {
		if err := r.players.SavePlayer(ctx, rec); err != nil {
			r.logger.Warn("persisting player snapshot",
				zap.String("username", rec.Username), zap.Error(err))
		}
	}
}

func record(p *actor.Player) storage.PlayerRecord {
	stats := p.Stats()
	return storage.PlayerRecord{
		Username:     p.ID(),
		LocationID:   p.LocationID(),
		HP:           p.HP(),
		MaxHP:        stats.MaxHP,
		SpeedMs:      int(stats.Speed / time.Millisecond),
		Attack:       stats.Attack,
		Defense:      stats.Defense,
		Skills:       p.Skills(),
		DefaultSkill: p.DefaultSkill(),
	}
}
