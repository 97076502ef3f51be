// Package stt defines the Transcriber interface for Speech-to-Text backends.
//
// A transcriber wraps a batch transcription service (e.g., a local whisper.cpp
// bridge) behind a single call: raw PCM in, text out. Voice sessions use it
// twice per utterance — repeatedly on a growing tail window for interim
// captions, and once on the full capture buffer for the authoritative
// transcript.
//
// Implementations must be safe for concurrent use; a session may run an
// interim transcription while the final one for the previous utterance is
// still in flight.
package stt

import "context"

// Transcriber is the abstraction over any batch STT backend.
type Transcriber interface {
	// Transcribe converts 16-bit signed little-endian mono PCM at the given
	// sample rate into text. The returned text may be empty when the audio
	// contains no recognisable speech; that is not an error.
	//
	// Implementations must respect ctx cancellation: interim transcriptions
	// are issued with short deadlines and abandoned freely.
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}
