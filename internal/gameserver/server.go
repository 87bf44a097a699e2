// Package gameserver dispatches inbound intents to the session,
// world, and combat subsystems and emits the resulting events back
// through the gateway.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/auth"
	"github.com/cory-johannsen/muddy/internal/game/cadence"
	"github.com/cory-johannsen/muddy/internal/game/combat"
	"github.com/cory-johannsen/muddy/internal/game/session"
	"github.com/cory-johannsen/muddy/internal/game/world"
	"github.com/cory-johannsen/muddy/internal/gateway"
	"github.com/cory-johannsen/muddy/internal/storage"
)

// defaultHintInterval is the hint broadcast cadence when not configured.
const defaultHintInterval = time.Minute

// Config carries the server's collaborators.
type Config struct {
	Sessions *session.Registry
	Combat   *combat.Coordinator
	World    *world.Store
	Out      gateway.Outbound
	// HintInterval overrides the hint broadcast cadence. Zero selects
	// the default.
	HintInterval time.Duration
	// HintText is broadcast on the hints channel. Empty disables the
	// broadcast.
	HintText string
	Logger   *zap.Logger
}

// Server routes intents. One Server instance serves every connection;
// all state lives in the subsystems it dispatches to.
type Server struct {
	sessions     *session.Registry
	combat       *combat.Coordinator
	world        *world.Store
	out          gateway.Outbound
	hintInterval time.Duration
	hintText     string
	logger       *zap.Logger

	hints *cadence.Cadence
}

// New creates a Server.
//
// Precondition: cfg.Sessions, cfg.Combat, cfg.World, and cfg.Out must
// be non-nil.
func New(cfg Config) *Server {
	if cfg.HintInterval <= 0 {
		cfg.HintInterval = defaultHintInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Server{
		sessions:     cfg.Sessions,
		combat:       cfg.Combat,
		world:        cfg.World,
		out:          cfg.Out,
		hintInterval: cfg.HintInterval,
		hintText:     cfg.HintText,
		logger:       cfg.Logger,
	}
}

// StartHints begins the periodic hint broadcast on the hints channel.
func (s *Server) StartHints() {
	if s.hintText == "" || s.hints != nil {
		return
	}
	s.hints = cadence.Start(s.hintInterval, func() {
		s.out.Broadcast(gateway.ChannelHints, gateway.Notice{Text: s.hintText})
	})
}

// Stop halts the hint broadcast. Sessions and encounters are owned by
// their subsystems and are shut down separately.
func (s *Server) Stop() {
	if s.hints != nil {
		s.hints.Stop()
	}
}

// Handle routes one inbound intent. It is the gateway.Handler for the
// server and is safe for concurrent calls.
func (s *Server) Handle(ctx context.Context, in gateway.Intent) {
	switch in.Type {
	case gateway.IntentRegister:
		s.handleRegister(ctx, in)
	case gateway.IntentLogin:
		s.handleLogin(ctx, in)
	case gateway.IntentMove:
		s.handleMove(ctx, in)
	case gateway.IntentFight:
		s.handleFight(ctx, in)
	case gateway.IntentChat:
		s.handleChat(ctx, in)
	case gateway.IntentDisconnect:
		s.handleDisconnect(ctx, in)
	case gateway.IntentCommand:
		// Unrecognized input is echoed back.
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: in.Text})
	default:
		s.logger.Warn("unknown intent type",
			zap.String("type", string(in.Type)),
			zap.String("conn", in.ConnectionID))
	}
}

// secret returns the credential material of a register or login intent.
// Bcrypt clients send a password; connection-bound clients send a hash.
func secret(in gateway.Intent) string {
	if in.Password != "" {
		return in.Password
	}
	return in.PasswordHash
}

func (s *Server) handleRegister(ctx context.Context, in gateway.Intent) {
	err := s.sessions.Register(ctx, in.Username, secret(in))
	switch {
	case err == nil:
		s.out.Deliver(in.ConnectionID, gateway.RegistrationAccepted{Username: in.Username})
	case errors.Is(err, storage.ErrDuplicateUsername):
		s.out.Deliver(in.ConnectionID, gateway.RegistrationRejected{Reason: "username taken"})
	default:
		s.logger.Error("registration failed",
			zap.String("username", in.Username), zap.Error(err))
		s.out.Deliver(in.ConnectionID, gateway.RegistrationRejected{Reason: "registration failed"})
	}
}

func (s *Server) handleLogin(ctx context.Context, in gateway.Intent) {
	sess, superseded, err := s.sessions.Login(ctx, in.ConnectionID, in.Username, secret(in))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("login failed",
				zap.String("username", in.Username), zap.Error(err))
		}
		s.out.Deliver(in.ConnectionID, gateway.LoginRejected{})
		return
	}

	if superseded != "" {
		s.combat.CancelForConnection(superseded)
		s.out.Deliver(superseded, gateway.Notice{Text: "You have logged in from elsewhere."})
	}

	s.out.Deliver(in.ConnectionID, gateway.LoginAccepted{Username: in.Username})
	s.out.Deliver(in.ConnectionID, gateway.Notice{Text: fmt.Sprintf("Welcome %s!", in.Username)})
	s.sessions.PushState(sess)
}

func (s *Server) handleMove(ctx context.Context, in gateway.Intent) {
	sess, ok := s.sessions.ByConn(in.ConnectionID)
	if !ok {
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "You must log in first."})
		return
	}
	p := sess.Player()

	_, err := s.world.Move(p.Actor, world.Direction(in.Direction))
	switch {
	case err == nil:
		// Walking away abandons the fight. A rejected move leaves the
		// player in the room, so the fight stands.
		s.combat.CancelForActor(p.ID())
		s.sessions.PushState(sess)
	case errors.Is(err, world.ErrNoSuchExit):
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "You cannot move in that direction"})
	default:
		s.logger.Error("move failed",
			zap.String("username", p.ID()),
			zap.String("direction", in.Direction),
			zap.Error(err))
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "You cannot move in that direction"})
	}
}

func (s *Server) handleFight(ctx context.Context, in gateway.Intent) {
	sess, ok := s.sessions.ByConn(in.ConnectionID)
	if !ok {
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "You must log in first."})
		return
	}

	_, err := s.combat.Start(sess.Player(), in.ConnectionID, in.Target, in.Skill)
	switch {
	case err == nil:
	case errors.Is(err, combat.ErrTargetNotInRoom):
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "Target missing"})
	case errors.Is(err, combat.ErrTargetDead):
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: fmt.Sprintf("%s is already dead!", in.Target)})
	case errors.Is(err, combat.ErrAlreadyEngaged):
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "You are already in combat!"})
	default:
		s.logger.Error("fight failed",
			zap.String("username", sess.Player().ID()),
			zap.String("target", in.Target),
			zap.Error(err))
	}
}

func (s *Server) handleChat(ctx context.Context, in gateway.Intent) {
	sess, ok := s.sessions.ByConn(in.ConnectionID)
	if !ok {
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: "You must log in first."})
		return
	}

	msg := gateway.ChatMessage{From: sess.Player().Name(), To: in.To, Body: in.Body}
	if in.To == "" {
		s.out.Broadcast(gateway.ChannelAll, msg)
		return
	}
	target, ok := s.sessions.ByUser(in.To)
	if !ok {
		s.out.Deliver(in.ConnectionID, gateway.Notice{Text: fmt.Sprintf("%s is not online.", in.To)})
		return
	}
	s.out.Deliver(target.ConnID(), msg)
}

func (s *Server) handleDisconnect(ctx context.Context, in gateway.Intent) {
	s.combat.CancelForConnection(in.ConnectionID)
	s.sessions.Disconnect(ctx, in.ConnectionID)
}
