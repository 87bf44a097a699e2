package gateway

import (
	"fmt"
	"sync"
)

// Conn is the in-memory endpoint of one connection: a buffered event
// channel the consumer drains.
type Conn struct {
	id     string
	events chan Event
	mu     sync.Mutex
	closed bool
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// Events returns the read-only event channel.
func (c *Conn) Events() <-chan Event { return c.events }

// push enqueues an event without blocking. Full buffers drop the event.
func (c *Conn) push(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection %s is closed", c.id)
	}
	select {
	case c.events <- evt:
		return nil
	default:
		return fmt.Errorf("connection %s event buffer full", c.id)
	}
}

// close marks the connection closed and closes the event channel.
func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Memory is an in-process Outbound implementation backed by channels.
// It serves tests and any embedding caller that wants direct event
// consumption without a transport.
// All methods are safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{conns: make(map[string]*Conn)}
}

// Connect registers a connection and returns its endpoint. The
// connectionId event is delivered as the first event, mirroring the
// transport handshake.
//
// Precondition: connID must be non-empty and not already registered.
func (g *Memory) Connect(connID string) (*Conn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.conns[connID]; exists {
		return nil, fmt.Errorf("connection %q already registered", connID)
	}
	c := &Conn{id: connID, events: make(chan Event, 64)}
	g.conns[connID] = c
	_ = c.push(ConnectionID{ConnectionID: connID})
	return c, nil
}

// Close deregisters a connection and closes its event channel. Unknown
// connections are a no-op.
func (g *Memory) Close(connID string) {
	g.mu.Lock()
	c, ok := g.conns[connID]
	delete(g.conns, connID)
	g.mu.Unlock()

	if ok {
		c.close()
	}
}

// Deliver sends an event to one connection. Unknown or saturated
// connections drop the event silently; pushes are fire-and-forget.
func (g *Memory) Deliver(connID string, evt Event) {
	g.mu.RLock()
	c, ok := g.conns[connID]
	g.mu.RUnlock()

	if ok {
		_ = c.push(evt)
	}
}

// Broadcast sends an event to every registered connection. The channel
// argument names the logical stream; every connection is joined to all
// broadcast channels.
func (g *Memory) Broadcast(channel string, evt Event) {
	g.mu.RLock()
	conns := make([]*Conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		_ = c.push(evt)
	}
}

// ConnCount returns the number of registered connections.
func (g *Memory) ConnCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}
