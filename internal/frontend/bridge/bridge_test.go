package bridge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/muddy/internal/frontend/bridge"
	"github.com/cory-johannsen/muddy/internal/gateway"
)

// fixture runs an embedded NATS server with a server-side gateway whose
// handler records every intent it dispatches.
type fixture struct {
	out    *gateway.NATS
	client *bridge.Client

	mu      sync.Mutex
	intents []gateway.Intent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	embedded, err := gateway.StartEmbedded("127.0.0.1", -1)
	require.NoError(t, err)
	t.Cleanup(embedded.Shutdown)

	serverConn, err := nats.Connect(embedded.ClientURL())
	require.NoError(t, err)
	t.Cleanup(serverConn.Close)

	f := &fixture{}
	f.out = gateway.NewNATS(serverConn, "muddytest", logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, f.out.Serve(ctx, func(_ context.Context, intent gateway.Intent) {
		f.mu.Lock()
		f.intents = append(f.intents, intent)
		f.mu.Unlock()
	}))

	clientConn, err := nats.Connect(embedded.ClientURL())
	require.NoError(t, err)
	t.Cleanup(clientConn.Close)

	f.client, err = bridge.Dial(clientConn, "muddytest", logger)
	require.NoError(t, err)
	return f
}

func (f *fixture) received() []gateway.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.Intent(nil), f.intents...)
}

func TestDialAssignsConnectionID(t *testing.T) {
	f := newFixture(t)
	assert.NotEmpty(t, f.client.ConnectionID())
}

func TestSendStampsConnectionID(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Send(gateway.Intent{
		Type:      gateway.IntentMove,
		Direction: "north",
	}))

	require.Eventually(t, func() bool {
		return len(f.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got := f.received()[0]
	assert.Equal(t, gateway.IntentMove, got.Type)
	assert.Equal(t, "north", got.Direction)
	assert.Equal(t, f.client.ConnectionID(), got.ConnectionID)
}

func TestDeliverReachesClientEvents(t *testing.T) {
	f := newFixture(t)

	f.out.Deliver(f.client.ConnectionID(), gateway.Notice{Text: "Welcome Ava!"})

	select {
	case evt := <-f.client.Events():
		notice, ok := evt.(*gateway.Notice)
		require.True(t, ok)
		assert.Equal(t, "Welcome Ava!", notice.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	f := newFixture(t)

	f.out.Broadcast(gateway.ChannelHints, gateway.Notice{Text: "hint"})

	select {
	case evt := <-f.client.Events():
		assert.Equal(t, gateway.EventNotice, evt.EventType())
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast delivered")
	}
}

func TestCloseSendsDisconnect(t *testing.T) {
	f := newFixture(t)

	f.client.Close()
	f.client.Close() // idempotent

	require.Eventually(t, func() bool {
		for _, intent := range f.received() {
			if intent.Type == gateway.IntentDisconnect {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
