// Package audio provides the PCM primitives used by voice sessions: an
// append-only capture buffer, RMS energy measurement, linear resampling, and
// WAV container encoding.
//
// All PCM data is 16-bit signed little-endian mono unless stated otherwise.
package audio

import "sync"

// Buffer accumulates raw PCM16LE bytes for the utterance currently being
// captured. It also maintains a monotonic counter of all bytes ever appended,
// which survives SnapshotAndReset so interim progress reports never move
// backwards.
//
// Buffer is safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	data  []byte
	total int64
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds pcm to the buffer and advances the monotonic received counter.
func (b *Buffer) Append(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, pcm...)
	b.total += int64(len(pcm))
}

// Len returns the number of bytes currently held (since the last reset).
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// TotalReceived returns the monotonic count of bytes appended over the
// lifetime of the buffer. It is never reduced by SnapshotAndReset.
func (b *Buffer) TotalReceived() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// SnapshotAndReset returns the buffered PCM and the monotonic received count
// at the time of the snapshot, then clears the buffer. The returned slice is
// owned by the caller; subsequent appends write to fresh storage.
func (b *Buffer) SnapshotAndReset() ([]byte, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := b.data
	b.data = nil
	return data, b.total
}

// TailWindow returns a copy of up to the last window-worth of buffered audio,
// where the window is expressed as a duration in milliseconds at the given
// sample rate (16-bit mono). The copy keeps concurrent appends from mutating
// the caller's view mid-transcription.
func (b *Buffer) TailWindow(windowMs, sampleRate int) []byte {
	if windowMs <= 0 || sampleRate <= 0 {
		return nil
	}
	maxBytes := sampleRate * 2 * windowMs / 1000
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return nil
	}
	start := 0
	if len(b.data) > maxBytes {
		start = len(b.data) - maxBytes
		// Keep int16 alignment.
		start -= start % 2
	}
	out := make([]byte, len(b.data)-start)
	copy(out, b.data[start:])
	return out
}
