// Package mock provides a test double for the stt.Transcriber interface.
//
// Use Transcriber to return canned text and to inspect which PCM buffers were
// submitted for transcription.
//
// Example:
//
//	tr := &mock.Transcriber{Result: "hello world"}
//	text, _ := tr.Transcribe(ctx, pcm, 16000)
package mock

import (
	"context"
	"sync"

	"github.com/reflections-ai/reflections/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// PCM is a copy of the audio passed to Transcribe.
	PCM []byte
	// SampleRate is the sample rate passed to Transcribe.
	SampleRate int
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe when Func is nil.
	Result string

	// Err, if non-nil, is returned by Transcribe when Func is nil.
	Err error

	// Func, if non-nil, handles Transcribe calls instead of Result/Err.
	Func func(ctx context.Context, pcm []byte, sampleRate int) (string, error)

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns the configured result.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	t.mu.Lock()
	pcmCopy := make([]byte, len(pcm))
	copy(pcmCopy, pcm)
	t.Calls = append(t.Calls, TranscribeCall{PCM: pcmCopy, SampleRate: sampleRate})
	fn := t.Func
	result, err := t.Result, t.Err
	t.mu.Unlock()

	if fn != nil {
		return fn(ctx, pcm, sampleRate)
	}
	return result, err
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*Transcriber)(nil)
