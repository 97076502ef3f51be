package session

import (
	"encoding/json"
	"fmt"
)

// Client message type tags. The client-to-server protocol is closed: any
// other tag is rejected with an error message rather than ignored.
const (
	clientHello      = "hello"
	clientAudioFrame = "audio_frame"
	clientCancel     = "cancel"
	clientEnd        = "end"
)

// ClientMessage is the decoded form of one inbound JSON control frame. Only
// the fields relevant to the tagged type carry meaning; the rest are zero.
type ClientMessage struct {
	Type string `json:"type"`

	// SampleRate accompanies hello (fixing the session rate) and optionally
	// audio_frame (declaring the frame's own rate for resampling).
	SampleRate int `json:"sample_rate,omitempty"`

	// Voice accompanies hello and selects the synthesis voice.
	Voice string `json:"voice,omitempty"`

	// PCM16LEB64 accompanies audio_frame: base64-encoded PCM16LE audio.
	PCM16LEB64 string `json:"pcm16le_b64,omitempty"`
}

// ParseClientMessage decodes and validates one inbound control frame.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("session: decode client message: %w", err)
	}
	switch msg.Type {
	case clientHello, clientAudioFrame, clientCancel, clientEnd:
		return msg, nil
	default:
		return ClientMessage{}, fmt.Errorf("session: unknown client message type %q", msg.Type)
	}
}

// Server message type tags.
const (
	TypeReady             = "ready"
	TypePartialTranscript = "partial_transcript"
	TypeFinalTranscript   = "final_transcript"
	TypeAssistantDelta    = "assistant_delta"
	TypeAssistantMessage  = "assistant_message"
	TypeTTSChunk          = "tts_chunk"
	TypeCancelled         = "cancelled"
	TypeDone              = "done"
	TypeError             = "error"
)

// ReadyMessage signals that the session accepts audio.
type ReadyMessage struct {
	Type string `json:"type"`
}

// PartialTranscriptMessage is an interim caption for the utterance being
// captured. BytesReceived never decreases within a session.
type PartialTranscriptMessage struct {
	Type          string `json:"type"`
	Text          string `json:"text"`
	BytesReceived int64  `json:"bytes_received"`
}

// FinalTranscriptMessage is the authoritative transcript for a finalized
// utterance.
type FinalTranscriptMessage struct {
	Type          string  `json:"type"`
	Text          string  `json:"text"`
	BytesReceived int64   `json:"bytes_received"`
	DurationS     float64 `json:"duration_s"`
}

// AssistantDeltaMessage is one streamed fragment of the reply text.
type AssistantDeltaMessage struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

// AssistantMessageMessage is the complete reply text, sent once streaming
// has finished.
type AssistantMessageMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TTSChunkMessage carries one synthesized WAV clip. Seq ascends from 0
// within a turn; IsLast marks the final clip.
type TTSChunkMessage struct {
	Type   string `json:"type"`
	Seq    int    `json:"seq"`
	WAVB64 string `json:"wav_b64"`
	IsLast bool   `json:"is_last"`
}

// CancelledMessage acknowledges that the in-flight turn was abandoned.
type CancelledMessage struct {
	Type string `json:"type"`
}

// DoneMessage marks the end of a turn, successful or cancelled.
type DoneMessage struct {
	Type string `json:"type"`
}

// ErrorMessage reports a recoverable, per-turn failure. The session stays up.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newReady() ReadyMessage {
	return ReadyMessage{Type: TypeReady}
}

func newPartialTranscript(text string, bytesReceived int64) PartialTranscriptMessage {
	return PartialTranscriptMessage{Type: TypePartialTranscript, Text: text, BytesReceived: bytesReceived}
}

func newFinalTranscript(text string, bytesReceived int64, durationS float64) FinalTranscriptMessage {
	return FinalTranscriptMessage{Type: TypeFinalTranscript, Text: text, BytesReceived: bytesReceived, DurationS: durationS}
}

func newAssistantDelta(delta string) AssistantDeltaMessage {
	return AssistantDeltaMessage{Type: TypeAssistantDelta, Delta: delta}
}

func newAssistantMessage(text string) AssistantMessageMessage {
	return AssistantMessageMessage{Type: TypeAssistantMessage, Text: text}
}

func newTTSChunk(seq int, wavB64 string, isLast bool) TTSChunkMessage {
	return TTSChunkMessage{Type: TypeTTSChunk, Seq: seq, WAVB64: wavB64, IsLast: isLast}
}

func newCancelled() CancelledMessage {
	return CancelledMessage{Type: TypeCancelled}
}

func newDone() DoneMessage {
	return DoneMessage{Type: TypeDone}
}

func newError(message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Message: message}
}
