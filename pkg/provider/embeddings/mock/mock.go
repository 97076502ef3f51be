// Package mock provides a test double for the embeddings.Provider interface.
//
// The mock derives a deterministic vector from the input text unless a fixed
// Vector or an Err is configured, so memory-layer tests get stable,
// distinguishable embeddings without a live model.
package mock

import (
	"context"
	"sync"

	"github.com/reflections-ai/reflections/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// Dims is the vector length produced by the mock. Defaults to 4 when zero.
	Dims int

	// Vector, if non-nil, is returned for every Embed call.
	Vector []float32

	// Err, if non-nil, is returned by Embed and EmbedBatch.
	Err error

	// EmbedCalls records the texts passed to Embed and EmbedBatch, in order.
	EmbedCalls []string
}

func (p *Provider) dims() int {
	if p.Dims > 0 {
		return p.Dims
	}
	return 4
}

// derive produces a deterministic pseudo-embedding from text.
func (p *Provider) derive(text string) []float32 {
	if p.Vector != nil {
		out := make([]float32, len(p.Vector))
		copy(out, p.Vector)
		return out
	}
	out := make([]float32, p.dims())
	var h uint32 = 2166136261
	for _, c := range []byte(text) {
		h = (h ^ uint32(c)) * 16777619
	}
	for i := range out {
		h = h*1664525 + 1013904223
		out[i] = float32(h%1000) / 1000
	}
	return out
}

// Embed records the call and returns the derived vector.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.derive(text), nil
}

// EmbedBatch records the calls and returns one derived vector per text.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, texts...)
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.derive(t)
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (p *Provider) Dimensions() int {
	return p.dims()
}

// ModelID identifies the mock in logs.
func (p *Provider) ModelID() string {
	return "mock-embeddings"
}

// Compile-time interface assertion.
var _ embeddings.Provider = (*Provider)(nil)
