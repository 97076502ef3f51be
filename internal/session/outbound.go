package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/reflections-ai/reflections/internal/transport"
)

// Outbound serialises all server-to-client writes through a single mutex.
// The session's monitors, turn pipeline, and event loop all write through
// the same Outbound, so frames from different writers never interleave and
// each writer's own messages keep their order.
type Outbound struct {
	mu sync.Mutex
	tr transport.Transport
}

// NewOutbound wraps tr.
func NewOutbound(tr transport.Transport) *Outbound {
	return &Outbound{tr: tr}
}

// Send encodes msg as JSON and writes it as one text frame.
func (o *Outbound) Send(ctx context.Context, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("session: encode server message: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tr.WriteText(ctx, data)
}
