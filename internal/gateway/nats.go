package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATS bridges the gateway to a NATS connection. Clients request a
// connection ID on <prefix>.connect, publish intents to
// <prefix>.intent, and subscribe to <prefix>.conn.<id> plus the
// <prefix>.channel.* broadcast subjects.
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
	subs   []*nats.Subscription
}

// NewNATS creates a NATS gateway on an established connection.
//
// Precondition: conn must be connected; prefix must be non-empty;
// logger must be non-nil.
func NewNATS(conn *nats.Conn, prefix string, logger *zap.Logger) *NATS {
	return &NATS{conn: conn, prefix: prefix, logger: logger}
}

// Serve subscribes the connect handshake and the intent stream, routing
// decoded intents to handler until ctx is cancelled.
//
// Postcondition: Both subscriptions are active, or a non-nil error is
// returned and none are.
func (g *NATS) Serve(ctx context.Context, handler Handler) error {
	connectSub, err := g.conn.Subscribe(g.prefix+".connect", func(msg *nats.Msg) {
		connID := uuid.NewString()
		data, err := Encode(ConnectionID{ConnectionID: connID})
		if err != nil {
			g.logger.Error("encoding connection handshake", zap.Error(err))
			return
		}
		if err := msg.Respond(data); err != nil {
			g.logger.Warn("responding to connect request", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing connect subject: %w", err)
	}

	intentSub, err := g.conn.Subscribe(g.prefix+".intent", func(msg *nats.Msg) {
		var intent Intent
		if err := json.Unmarshal(msg.Data, &intent); err != nil {
			g.logger.Warn("decoding intent", zap.Error(err))
			return
		}
		if intent.ConnectionID == "" {
			g.logger.Warn("intent without connection id",
				zap.String("type", string(intent.Type)))
			return
		}
		handler(ctx, intent)
	})
	if err != nil {
		_ = connectSub.Unsubscribe()
		return fmt.Errorf("subscribing intent subject: %w", err)
	}

	g.subs = append(g.subs, connectSub, intentSub)

	go func() {
		<-ctx.Done()
		g.Stop()
	}()
	return nil
}

// Stop drains the gateway subscriptions. Safe to call multiple times.
func (g *NATS) Stop() {
	for _, sub := range g.subs {
		_ = sub.Unsubscribe()
	}
	g.subs = nil
}

// Deliver publishes an event to the connection's private subject.
// Failures are logged, never returned: pushes are fire-and-forget.
func (g *NATS) Deliver(connID string, evt Event) {
	g.publish(fmt.Sprintf("%s.conn.%s", g.prefix, connID), evt)
}

// Broadcast publishes an event to a shared channel subject.
func (g *NATS) Broadcast(channel string, evt Event) {
	g.publish(fmt.Sprintf("%s.channel.%s", g.prefix, channel), evt)
}

func (g *NATS) publish(subject string, evt Event) {
	data, err := Encode(evt)
	if err != nil {
		g.logger.Error("encoding event",
			zap.String("subject", subject),
			zap.String("event", string(evt.EventType())),
			zap.Error(err),
		)
		return
	}
	if err := g.conn.Publish(subject, data); err != nil {
		g.logger.Warn("publishing event",
			zap.String("subject", subject),
			zap.String("event", string(evt.EventType())),
			zap.Error(err),
		)
	}
}
