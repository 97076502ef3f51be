package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/reflections-ai/reflections/internal/transport/mock"
)

func TestOutbound_ConcurrentWritesStayWholeFrames(t *testing.T) {
	conn := mock.NewConn()
	out := NewOutbound(conn)
	ctx := context.Background()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := out.Send(ctx, newAssistantDelta("x")); err != nil {
					t.Errorf("writer %d: %v", id, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	msgs := conn.SentMessages()
	if len(msgs) != writers*perWriter {
		t.Fatalf("frame count = %d, want %d", len(msgs), writers*perWriter)
	}
	for i, raw := range msgs {
		var m AssistantDeltaMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("frame %d corrupted: %v", i, err)
		}
	}
}

func TestOutbound_UnmarshalableMessage(t *testing.T) {
	out := NewOutbound(mock.NewConn())
	if err := out.Send(context.Background(), func() {}); err == nil {
		t.Error("Send accepted an unmarshalable value")
	}
}
