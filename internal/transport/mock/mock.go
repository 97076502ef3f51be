// Package mock provides a channel-backed test double for the transport
// package. Tests feed inbound frames with SendText/SendBinary and observe
// everything the session wrote on the Sent channel.
package mock

import (
	"context"
	"sync"

	"github.com/reflections-ai/reflections/internal/transport"
)

type frame struct {
	typ  transport.MessageType
	data []byte
}

// Conn is a mock implementation of transport.Transport.
type Conn struct {
	incoming chan frame

	// Sent receives a copy of every text frame written by the session, in
	// write order. Buffered generously so a session never blocks on it.
	Sent chan []byte

	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	internal bool
	reason   string
	done     chan struct{}
}

// NewConn returns a ready-to-use mock connection.
func NewConn() *Conn {
	return &Conn{
		incoming: make(chan frame, 256),
		Sent:     make(chan []byte, 1024),
		done:     make(chan struct{}),
	}
}

// SendText queues an inbound JSON control frame.
func (c *Conn) SendText(data string) {
	c.incoming <- frame{typ: transport.MessageText, data: []byte(data)}
}

// SendBinary queues an inbound PCM frame.
func (c *Conn) SendBinary(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	c.incoming <- frame{typ: transport.MessageBinary, data: buf}
}

// Disconnect simulates the peer going away: pending Reads return ErrClosed.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// Read implements transport.Transport.
func (c *Conn) Read(ctx context.Context) (transport.MessageType, []byte, error) {
	select {
	case f := <-c.incoming:
		return f.typ, f.data, nil
	case <-c.done:
		return 0, nil, transport.ErrClosed
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

// WriteText implements transport.Transport.
func (c *Conn) WriteText(_ context.Context, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	c.mu.Unlock()

	select {
	case c.Sent <- buf:
	default:
	}
	return nil
}

// Close implements transport.Transport.
func (c *Conn) Close(internal bool, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.internal = internal
		c.reason = reason
		close(c.done)
	}
	return nil
}

// SentMessages returns a copy of every written text frame so far. Thread-safe.
func (c *Conn) SentMessages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// Closed reports whether Close or Disconnect has been called. Thread-safe.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Compile-time interface assertion.
var _ transport.Transport = (*Conn)(nil)
