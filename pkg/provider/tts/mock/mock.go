// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to return canned WAV payloads and to verify which text chunks
// and voices were submitted for synthesis.
package mock

import (
	"context"
	"sync"

	"github.com/reflections-ai/reflections/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
	// Voice is the voice passed to Synthesize.
	Voice string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Synthesize when Func is nil. When nil, Synthesize
	// fabricates a payload of "wav:" + text so tests can trace chunks.
	Result []byte

	// Err, if non-nil, is returned by Synthesize when Func is nil.
	Err error

	// Func, if non-nil, handles Synthesize calls instead of Result/Err.
	Func func(ctx context.Context, text, voice string) ([]byte, error)

	// Voices is returned by ListVoices.
	Voices []tts.Voice

	// ListVoicesErr, if non-nil, is returned by ListVoices.
	ListVoicesErr error

	// Calls records every invocation of Synthesize in order.
	Calls []SynthesizeCall
}

// Synthesize records the call and returns the configured payload.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Voice: voice})
	fn := p.Func
	result, err := p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []byte("wav:" + text), nil
	}
	return result, nil
}

// ListVoices returns Voices, ListVoicesErr.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Voices, p.ListVoicesErr
}

// CallCount returns the number of recorded Synthesize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)
