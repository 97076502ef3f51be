package audio_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/reflections-ai/reflections/pkg/audio"
)

func TestBufferAppendAndSnapshot(t *testing.T) {
	b := audio.NewBuffer()
	b.Append([]byte{1, 2, 3, 4})
	b.Append([]byte{5, 6})

	if got := b.Len(); got != 6 {
		t.Fatalf("Len: got %d, want 6", got)
	}

	data, total := b.SnapshotAndReset()
	if !bytes.Equal(data, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("snapshot data: got %v", data)
	}
	if total != 6 {
		t.Errorf("snapshot total: got %d, want 6", total)
	}
	if got := b.Len(); got != 0 {
		t.Errorf("Len after reset: got %d, want 0", got)
	}
}

func TestBufferTotalReceivedSurvivesReset(t *testing.T) {
	b := audio.NewBuffer()
	b.Append(make([]byte, 160))
	b.SnapshotAndReset()
	b.Append(make([]byte, 160))

	if got := b.TotalReceived(); got != 320 {
		t.Errorf("TotalReceived: got %d, want 320", got)
	}
	if got := b.Len(); got != 160 {
		t.Errorf("Len: got %d, want 160", got)
	}
}

func TestBufferTailWindow(t *testing.T) {
	b := audio.NewBuffer()
	// 1 second of audio at 1000 Hz mono = 2000 bytes.
	full := make([]byte, 2000)
	for i := range full {
		full[i] = byte(i)
	}
	b.Append(full)

	// A 500 ms window at 1000 Hz = 1000 bytes, the last half.
	tail := b.TailWindow(500, 1000)
	if len(tail) != 1000 {
		t.Fatalf("tail length: got %d, want 1000", len(tail))
	}
	if !bytes.Equal(tail, full[1000:]) {
		t.Error("tail does not match the end of the buffer")
	}

	// Window larger than the buffer returns everything.
	all := b.TailWindow(10_000, 1000)
	if len(all) != 2000 {
		t.Errorf("oversized window: got %d bytes, want 2000", len(all))
	}
}

func TestBufferTailWindowAlignment(t *testing.T) {
	b := audio.NewBuffer()
	b.Append(make([]byte, 101))

	// 25 ms at 1000 Hz = 50 bytes; start offset must stay sample-aligned.
	tail := b.TailWindow(25, 1000)
	if len(tail)%2 != 1 && (101-len(tail))%2 != 0 {
		t.Errorf("tail start is not int16-aligned: len=%d", len(tail))
	}
}

func TestBufferEmptyTailWindow(t *testing.T) {
	b := audio.NewBuffer()
	if got := b.TailWindow(3000, 16000); got != nil {
		t.Errorf("empty buffer tail: got %v, want nil", got)
	}
}

func TestBufferConcurrentAppend(t *testing.T) {
	b := audio.NewBuffer()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				b.Append([]byte{0, 0})
			}
		}()
	}
	wg.Wait()

	if got := b.TotalReceived(); got != 1600 {
		t.Errorf("TotalReceived: got %d, want 1600", got)
	}
}
