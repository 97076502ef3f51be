// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., a local Piper bridge
// or a cloud API) behind a batch interface: one utterance-sized text chunk in,
// one complete WAV clip out. Turn pipelines call Synthesize concurrently with
// reply generation so early sentences start playing while later ones are
// still being written.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Voice describes a synthesis voice offered by a provider.
type Voice struct {
	// ID is the provider-specific voice identifier sent with synthesis requests.
	ID string

	// Name is the human-readable voice name.
	Name string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize converts text into a complete WAV clip (PCM16LE payload).
	// voice selects the voice profile; an empty voice uses the provider
	// default. Implementations must respect ctx cancellation — an abandoned
	// turn must not keep synthesis requests alive.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// ListVoices returns the voices this provider can synthesize with.
	ListVoices(ctx context.Context) ([]Voice, error)
}
