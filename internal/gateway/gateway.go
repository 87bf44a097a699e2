package gateway

import "context"

// Broadcast channels every connection is implicitly joined to.
const (
	// ChannelHints carries the periodic server hint notice.
	ChannelHints = "hints"
	// ChannelAll carries server-wide announcements.
	ChannelAll = "all"
)

// Outbound pushes events toward connected clients. Delivery is
// fire-and-forget: implementations log failures and never block the
// caller on a slow consumer.
type Outbound interface {
	// Deliver sends an event to a single connection.
	Deliver(connID string, evt Event)
	// Broadcast sends an event to every connection joined to channel.
	Broadcast(channel string, evt Event)
}

// IntentType identifies an inbound client intent.
type IntentType string

// Inbound intent types.
const (
	IntentRegister   IntentType = "register"
	IntentLogin      IntentType = "login"
	IntentMove       IntentType = "move"
	IntentFight      IntentType = "fight"
	IntentChat       IntentType = "chat"
	IntentDisconnect IntentType = "disconnect"
	IntentCommand    IntentType = "command"
)

// Intent is one inbound client message. Fields beyond ConnectionID and
// Type are populated per intent type.
type Intent struct {
	ConnectionID string     `json:"connectionId"`
	Type         IntentType `json:"type"`

	// register / login
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`

	// move
	Direction string `json:"direction,omitempty"`

	// fight
	Target string `json:"target,omitempty"`
	Skill  string `json:"skill,omitempty"`

	// chat
	To   string `json:"to,omitempty"`
	Body string `json:"body,omitempty"`

	// command
	Text string `json:"text,omitempty"`
}

// Handler consumes inbound intents.
type Handler func(ctx context.Context, intent Intent)
