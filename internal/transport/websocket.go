package transport

import (
	"context"
	"sync"

	"github.com/coder/websocket"
)

// Compile-time interface assertion.
var _ Transport = (*WebSocket)(nil)

// WebSocket adapts a [websocket.Conn] to the Transport interface.
type WebSocket struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocket wraps an accepted WebSocket connection.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// Read implements Transport.
func (w *WebSocket) Read(ctx context.Context) (MessageType, []byte, error) {
	typ, data, err := w.conn.Read(ctx)
	if err != nil {
		return 0, nil, err
	}
	switch typ {
	case websocket.MessageText:
		return MessageText, data, nil
	default:
		return MessageBinary, data, nil
	}
}

// WriteText implements Transport.
func (w *WebSocket) WriteText(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, data)
}

// Close implements Transport.
func (w *WebSocket) Close(internal bool, reason string) error {
	w.closeOnce.Do(func() {
		code := websocket.StatusNormalClosure
		if internal {
			code = websocket.StatusInternalError
		}
		w.closeErr = w.conn.Close(code, reason)
	})
	return w.closeErr
}
