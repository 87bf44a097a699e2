// Package handlers bridges telnet sessions onto the gateway wire
// protocol: lines in, intents out; events in, rendered text out.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/frontend/telnet"
	"github.com/cory-johannsen/muddy/internal/gateway"
)

// GameClient is the session's link to the world server.
type GameClient interface {
	ConnectionID() string
	Events() <-chan gateway.Event
	Send(intent gateway.Intent) error
	Close()
}

// Dialer opens a fresh connection to the world server.
type Dialer func() (GameClient, error)

// SessionHandler runs the interactive loop for one telnet client.
type SessionHandler struct {
	dial   Dialer
	logger *zap.Logger
}

// NewSessionHandler creates a handler that dials the world server once
// per telnet session.
//
// Precondition: dial and logger must be non-nil.
func NewSessionHandler(dial Dialer, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{dial: dial, logger: logger}
}

const prompt = telnet.BrightCyan + "> " + telnet.Reset

// HandleSession drives one client: a forwarder goroutine renders
// server events while the main loop turns input lines into intents.
//
// Postcondition: The game connection is closed and both loops have
// exited when this returns.
func (h *SessionHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	client, err := h.dial()
	if err != nil {
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, "The world is unreachable. Try again later."))
		return fmt.Errorf("dialing world server: %w", err)
	}
	defer client.Close()

	_ = conn.WriteLine(telnet.Colorize(telnet.BrightYellow, "Welcome to muddy."))
	_ = conn.WriteLine("Commands: register <name>, login <name>, north/south/east/west,")
	_ = conn.WriteLine("  fight <target>, say <text>, tell <name> <text>, help, quit.")
	_ = conn.WritePrompt(prompt)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.forwardEvents(ctx, client, conn)
	}()

	err = h.commandLoop(ctx, client, conn)
	cancel()
	wg.Wait()
	return err
}

// forwardEvents renders server events to the client until ctx ends.
func (h *SessionHandler) forwardEvents(ctx context.Context, client GameClient, conn *telnet.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-client.Events():
			text := RenderEvent(evt)
			if text == "" {
				continue
			}
			_ = conn.WriteLine("\r\n" + text)
			_ = conn.WritePrompt(prompt)
		}
	}
}

// directions are verbs that move without a "go" prefix.
var directions = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"up": true, "down": true,
}

func (h *SessionHandler) commandLoop(ctx context.Context, client GameClient, conn *telnet.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			_ = conn.WritePrompt(prompt)
			continue
		}

		fields := strings.Fields(line)
		verb := strings.ToLower(fields[0])
		args := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		var intent gateway.Intent
		switch {
		case verb == "quit" || verb == "exit":
			_ = conn.WriteLine(telnet.Colorize(telnet.Cyan, "Goodbye."))
			return nil

		case verb == "help":
			h.writeHelp(conn)
			_ = conn.WritePrompt(prompt)
			continue

		case verb == "register" || verb == "login":
			if len(fields) != 2 {
				_ = conn.WriteLine(telnet.Colorf(telnet.Red, "Usage: %s <name>", verb))
				_ = conn.WritePrompt(prompt)
				continue
			}
			_ = conn.WritePrompt("Password: ")
			password, err := conn.ReadPassword()
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			intent = gateway.Intent{
				Type:     gateway.IntentType(verb),
				Username: fields[1],
				Password: password,
			}

		case directions[verb]:
			intent = gateway.Intent{Type: gateway.IntentMove, Direction: verb}

		case verb == "go":
			if args == "" {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Go where?"))
				_ = conn.WritePrompt(prompt)
				continue
			}
			intent = gateway.Intent{Type: gateway.IntentMove, Direction: strings.ToLower(args)}

		case verb == "fight":
			if args == "" {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Fight what?"))
				_ = conn.WritePrompt(prompt)
				continue
			}
			target, skill, _ := strings.Cut(args, " using ")
			intent = gateway.Intent{
				Type:   gateway.IntentFight,
				Target: strings.TrimSpace(target),
				Skill:  strings.TrimSpace(skill),
			}

		case verb == "say":
			if args == "" {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Say what?"))
				_ = conn.WritePrompt(prompt)
				continue
			}
			intent = gateway.Intent{Type: gateway.IntentChat, Body: args}

		case verb == "tell":
			if len(fields) < 3 {
				_ = conn.WriteLine(telnet.Colorize(telnet.Red, "Usage: tell <name> <text>"))
				_ = conn.WritePrompt(prompt)
				continue
			}
			intent = gateway.Intent{
				Type: gateway.IntentChat,
				To:   fields[1],
				Body: strings.TrimSpace(strings.TrimPrefix(args, fields[1])),
			}

		default:
			intent = gateway.Intent{Type: gateway.IntentCommand, Text: line}
		}

		if err := client.Send(intent); err != nil {
			return fmt.Errorf("sending %s intent: %w", intent.Type, err)
		}
	}
}

func (h *SessionHandler) writeHelp(conn *telnet.Conn) {
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Commands:"))
	_ = conn.WriteLine("  register <name>          create an account")
	_ = conn.WriteLine("  login <name>             log in")
	_ = conn.WriteLine("  north/south/east/west    move (also: go <direction>)")
	_ = conn.WriteLine("  fight <target>           attack a monster here")
	_ = conn.WriteLine("  fight <target> using <skill>")
	_ = conn.WriteLine("  say <text>               talk to everyone")
	_ = conn.WriteLine("  tell <name> <text>       whisper to a player")
	_ = conn.WriteLine("  quit                     leave the game")
}
