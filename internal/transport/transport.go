// Package transport abstracts the duplex frame connection a voice session
// runs over. The production implementation wraps a WebSocket; tests use the
// channel-backed double in the mock subpackage.
package transport

import (
	"context"
	"errors"
)

// MessageType discriminates the two frame kinds a session carries.
type MessageType int

const (
	// MessageText is a JSON control frame.
	MessageText MessageType = iota + 1
	// MessageBinary is a raw PCM16LE audio frame.
	MessageBinary
)

// ErrClosed is returned by Read and WriteText once the connection is gone.
var ErrClosed = errors.New("transport: connection closed")

// Transport is a duplex, ordered frame connection. Read is called from a
// single goroutine; WriteText may be called concurrently (callers serialise
// through an outbound multiplexer, but implementations must tolerate
// interleaved calls).
type Transport interface {
	// Read blocks until the next frame arrives, the peer disconnects, or ctx
	// is cancelled. A peer disconnect surfaces as a non-nil error.
	Read(ctx context.Context) (MessageType, []byte, error)

	// WriteText sends one complete text frame.
	WriteText(ctx context.Context, data []byte) error

	// Close tears the connection down. internal selects the failure close
	// code instead of a normal one. Closing more than once is safe.
	Close(internal bool, reason string) error
}
