package gateway

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// embeddedStartupTimeout bounds how long the embedded server may take
// to accept connections before startup fails.
const embeddedStartupTimeout = 10 * time.Second

// Embedded runs an in-process NATS server so a single binary can serve
// the gateway without external infrastructure.
type Embedded struct {
	ns *server.Server
}

// StartEmbedded launches an in-process NATS server bound to host:port
// and blocks until it accepts connections.
//
// Postcondition: Returns a running server or a non-nil error.
func StartEmbedded(host string, port int) (*Embedded, error) {
	ns, err := server.NewServer(&server.Options{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring embedded nats server: %w", err)
	}

	ns.Start()
	if !ns.ReadyForConnections(embeddedStartupTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready for connections")
	}
	return &Embedded{ns: ns}, nil
}

// ClientURL returns the URL clients connect to.
func (e *Embedded) ClientURL() string {
	return e.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *Embedded) Shutdown() {
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
}
