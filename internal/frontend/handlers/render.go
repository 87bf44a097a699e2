package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cory-johannsen/muddy/internal/frontend/telnet"
	"github.com/cory-johannsen/muddy/internal/gateway"
)

// RenderEvent formats an outbound event as colored telnet text. An
// empty result means the event produces no visible output.
func RenderEvent(evt gateway.Event) string {
	switch e := evt.(type) {
	case *gateway.ConnectionID:
		return ""
	case *gateway.LoginAccepted:
		return telnet.Colorf(telnet.BrightGreen, "Logged in as %s.", e.Username)
	case *gateway.LoginRejected:
		return telnet.Colorize(telnet.Red, "Login failed.")
	case *gateway.RegistrationAccepted:
		return telnet.Colorf(telnet.BrightGreen, "Registered %s. You can log in now.", e.Username)
	case *gateway.RegistrationRejected:
		if e.Reason != "" {
			return telnet.Colorf(telnet.Red, "Registration failed: %s", e.Reason)
		}
		return telnet.Colorize(telnet.Red, "Registration failed.")
	case *gateway.LocationSnapshot:
		return RenderLocation(e)
	case *gateway.StatsSnapshot:
		return RenderStats(e)
	case *gateway.CombatStatus:
		return telnet.Colorf(telnet.BrightRed, "[Combat] %s %d HP vs %s %d HP",
			e.InitiatorName, e.InitiatorHP, e.TargetName, e.TargetHP)
	case *gateway.ChatMessage:
		if e.To != "" {
			return telnet.Colorf(telnet.BrightWhite, "%s tells you: %s", e.From, e.Body)
		}
		return telnet.Colorf(telnet.BrightWhite, "%s says: %s", e.From, e.Body)
	case *gateway.Notice:
		return telnet.Colorize(telnet.Yellow, e.Text)
	default:
		return ""
	}
}

// RenderLocation formats a location snapshot as a room view.
func RenderLocation(loc *gateway.LocationSnapshot) string {
	var b strings.Builder

	b.WriteString(telnet.Colorize(telnet.BrightYellow, loc.ID))
	b.WriteString("\r\n")
	if loc.Description != "" {
		b.WriteString(telnet.Colorize(telnet.White, loc.Description))
		b.WriteString("\r\n")
	}

	if len(loc.Exits) > 0 {
		directions := make([]string, 0, len(loc.Exits))
		for dir := range loc.Exits {
			directions = append(directions, dir)
		}
		sort.Strings(directions)
		b.WriteString(telnet.Colorize(telnet.Cyan, "Exits:"))
		b.WriteString("\r\n")
		for _, dir := range directions {
			b.WriteString(fmt.Sprintf("  %s%-8s%s %s%s%s\r\n",
				telnet.BrightCyan, dir, telnet.Reset,
				telnet.Dim, loc.Exits[dir], telnet.Reset))
		}
	} else {
		b.WriteString(telnet.Colorize(telnet.Dim, "There are no obvious exits."))
		b.WriteString("\r\n")
	}

	if len(loc.Occupants) > 0 {
		names := make([]string, 0, len(loc.Occupants))
		for _, occ := range loc.Occupants {
			names = append(names, occ.Name)
		}
		b.WriteString(telnet.Colorf(telnet.Green, "Here: %s", strings.Join(names, ", ")))
		b.WriteString("\r\n")
	}
	return strings.TrimSuffix(b.String(), "\r\n")
}

// RenderStats formats the periodic stats push as a one-line readout.
func RenderStats(s *gateway.StatsSnapshot) string {
	return telnet.Colorf(telnet.Cyan, "%s  HP %d/%d  ATK %d  DEF %d",
		s.Name, s.HP, s.MaxHP, s.Attack, s.Defense)
}
