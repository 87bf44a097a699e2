// Package gateway defines the connection gateway boundary: outbound
// event delivery to connections and inbound intent dispatch from them.
// The engine core only ever sees the interfaces; transports (NATS,
// in-memory) live behind them.
package gateway

import (
	"encoding/json"
	"fmt"
)

// EventType identifies an outbound event.
type EventType string

// Outbound event types pushed to connections.
const (
	EventConnectionID         EventType = "connectionId"
	EventLoginAccepted        EventType = "loginAccepted"
	EventLoginRejected        EventType = "loginRejected"
	EventRegistrationAccepted EventType = "registrationAccepted"
	EventRegistrationRejected EventType = "registrationRejected"
	EventLocationSnapshot     EventType = "locationSnapshot"
	EventStatsSnapshot        EventType = "statsSnapshot"
	EventCombatStatus         EventType = "combatStatus"
	EventChatMessage          EventType = "chatMessage"
	EventNotice               EventType = "notice"
)

// Event is an outbound payload with a self-describing type.
type Event interface {
	EventType() EventType
}

// ConnectionID announces the connection's identifier right after the
// connection is registered.
type ConnectionID struct {
	ConnectionID string `json:"connectionId"`
}

func (ConnectionID) EventType() EventType { return EventConnectionID }

// LoginAccepted reports a successful login.
type LoginAccepted struct {
	Username string `json:"username"`
}

func (LoginAccepted) EventType() EventType { return EventLoginAccepted }

// LoginRejected reports a failed login. It deliberately carries no
// reason so usernames cannot be enumerated.
type LoginRejected struct{}

func (LoginRejected) EventType() EventType { return EventLoginRejected }

// RegistrationAccepted reports a successful registration.
type RegistrationAccepted struct {
	Username string `json:"username"`
}

func (RegistrationAccepted) EventType() EventType { return EventRegistrationAccepted }

// RegistrationRejected reports a failed registration.
type RegistrationRejected struct {
	Reason string `json:"reason,omitempty"`
}

func (RegistrationRejected) EventType() EventType { return EventRegistrationRejected }

// LocationSnapshot describes the location a player currently occupies.
type LocationSnapshot struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Exits       map[string]string `json:"exits"`
	Occupants   []OccupantInfo    `json:"occupants"`
}

func (LocationSnapshot) EventType() EventType { return EventLocationSnapshot }

// OccupantInfo is one monster entry of a location snapshot.
type OccupantInfo struct {
	Name string `json:"name"`
	HP   int    `json:"hp"`
	Dead bool   `json:"dead"`
}

// StatsSnapshot is the periodic push of a player's own state.
type StatsSnapshot struct {
	Name       string   `json:"name"`
	LocationID string   `json:"locationId"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"maxHp"`
	Attack     int      `json:"attack"`
	Defense    int      `json:"defense"`
	SpeedMs    int      `json:"speedMs"`
	Skills     []string `json:"skills,omitempty"`
	Dead       bool     `json:"dead"`
}

func (StatsSnapshot) EventType() EventType { return EventStatsSnapshot }

// CombatStatus is the periodic snapshot of an encounter's two sides.
type CombatStatus struct {
	InitiatorName string `json:"initiatorName"`
	InitiatorHP   int    `json:"initiatorHp"`
	TargetName    string `json:"targetName"`
	TargetHP      int    `json:"targetHp"`
}

func (CombatStatus) EventType() EventType { return EventCombatStatus }

// ChatMessage relays a chat line between players.
type ChatMessage struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func (ChatMessage) EventType() EventType { return EventChatMessage }

// Notice is a generic user-facing message.
type Notice struct {
	Text string `json:"text"`
}

func (Notice) EventType() EventType { return EventNotice }

// Envelope is the wire framing of an outbound event.
type Envelope struct {
	Type EventType       `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

// Encode frames an event for the wire.
//
// Postcondition: Returns a JSON envelope or a non-nil error.
func Encode(evt Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: evt.EventType(), Body: body})
}

// Decode parses a wire envelope back into its typed event.
//
// Postcondition: Returns the concrete event value, or a non-nil error
// for malformed framing or an unknown event type.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}

	var evt Event
	switch env.Type {
	case EventConnectionID:
		evt = &ConnectionID{}
	case EventLoginAccepted:
		evt = &LoginAccepted{}
	case EventLoginRejected:
		evt = &LoginRejected{}
	case EventRegistrationAccepted:
		evt = &RegistrationAccepted{}
	case EventRegistrationRejected:
		evt = &RegistrationRejected{}
	case EventLocationSnapshot:
		evt = &LocationSnapshot{}
	case EventStatsSnapshot:
		evt = &StatsSnapshot{}
	case EventCombatStatus:
		evt = &CombatStatus{}
	case EventChatMessage:
		evt = &ChatMessage{}
	case EventNotice:
		evt = &Notice{}
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}

	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, evt); err != nil {
			return nil, fmt.Errorf("decoding %s body: %w", env.Type, err)
		}
	}
	return evt, nil
}
