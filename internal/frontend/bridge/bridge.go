// Package bridge implements the client side of the gateway wire
// protocol: it requests a connection identity, publishes intents, and
// streams decoded outbound events for a single connection.
package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cory-johannsen/muddy/internal/gateway"
)

// connectTimeout bounds the connect handshake round trip.
const connectTimeout = 5 * time.Second

// eventBuffer is the per-client event queue depth. Events beyond it
// are dropped rather than blocking the NATS callback.
const eventBuffer = 256

// Client is one logical connection to the world server over NATS.
type Client struct {
	conn   *nats.Conn
	prefix string
	connID string
	logger *zap.Logger
	subs   []*nats.Subscription
	events chan gateway.Event
}

// Dial performs the connect handshake and subscribes the connection's
// private subject plus the broadcast channels.
//
// Precondition: conn must be connected; prefix must match the server's
// subject prefix.
// Postcondition: Returns a Client with a live event stream, or a
// non-nil error and no active subscriptions.
func Dial(conn *nats.Conn, prefix string, logger *zap.Logger) (*Client, error) {
	msg, err := conn.Request(prefix+".connect", nil, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("requesting connection id: %w", err)
	}

	evt, err := gateway.Decode(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding connect response: %w", err)
	}
	handshake, ok := evt.(*gateway.ConnectionID)
	if !ok || handshake.ConnectionID == "" {
		return nil, fmt.Errorf("connect handshake returned %s, want connectionId", evt.EventType())
	}

	c := &Client{
		conn:   conn,
		prefix: prefix,
		connID: handshake.ConnectionID,
		logger: logger,
		events: make(chan gateway.Event, eventBuffer),
	}

	subjects := []string{
		fmt.Sprintf("%s.conn.%s", prefix, c.connID),
		fmt.Sprintf("%s.channel.%s", prefix, gateway.ChannelHints),
		fmt.Sprintf("%s.channel.%s", prefix, gateway.ChannelAll),
	}
	for _, subject := range subjects {
		sub, err := conn.Subscribe(subject, c.receive)
		if err != nil {
			c.unsubscribe()
			return nil, fmt.Errorf("subscribing %s: %w", subject, err)
		}
		c.subs = append(c.subs, sub)
	}
	return c, nil
}

// ConnectionID returns the identity assigned by the gateway.
func (c *Client) ConnectionID() string {
	return c.connID
}

// Events returns the stream of decoded outbound events. The channel is
// never closed; readers stop when their session ends.
func (c *Client) Events() <-chan gateway.Event {
	return c.events
}

// Send publishes an intent stamped with this connection's identity.
func (c *Client) Send(intent gateway.Intent) error {
	intent.ConnectionID = c.connID
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("encoding intent: %w", err)
	}
	if err := c.conn.Publish(c.prefix+".intent", data); err != nil {
		return fmt.Errorf("publishing intent: %w", err)
	}
	return nil
}

// Close sends a disconnect intent and drops the subscriptions. Safe to
// call multiple times.
func (c *Client) Close() {
	if c.subs == nil {
		return
	}
	if err := c.Send(gateway.Intent{Type: gateway.IntentDisconnect}); err != nil {
		c.logger.Warn("sending disconnect intent", zap.Error(err))
	}
	c.unsubscribe()
}

func (c *Client) unsubscribe() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
}

func (c *Client) receive(msg *nats.Msg) {
	evt, err := gateway.Decode(msg.Data)
	if err != nil {
		c.logger.Warn("decoding outbound event",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	select {
	case c.events <- evt:
	default:
		c.logger.Warn("event queue full, dropping event",
			zap.String("event", string(evt.EventType())))
	}
}
