package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/reflections-ai/reflections/pkg/provider/llm"
	"github.com/reflections-ai/reflections/pkg/provider/tts"
)

// maxGreetBody bounds the greeting request body.
const maxGreetBody = 16 << 10

// greetRequest asks for a spoken greeting before the voice session starts.
type greetRequest struct {
	// Name is how the avatar should address the user.
	Name string `json:"name"`

	// Voice selects the synthesis voice. Empty uses the configured default.
	Voice string `json:"voice"`
}

// greetResponse carries the greeting text and, when synthesis succeeded, a
// base64-encoded WAV clip.
type greetResponse struct {
	Text   string `json:"text"`
	WAVB64 string `json:"wav_b64,omitempty"`
}

// voicesResponse lists the synthesis voices the server can speak with.
type voicesResponse struct {
	Voices []tts.Voice `json:"voices"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleGreet produces a short spoken greeting. Generation is best-effort: a
// missing or failing LLM falls back to a fixed line, and a failing TTS
// degrades to a text-only response. The endpoint never fails because a model
// is down.
func (s *Server) handleGreet(w http.ResponseWriter, r *http.Request) {
	var req greetRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGreetBody))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_request"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("Welcome back, %s.", name)
	if s.cfg.Providers.LLM != nil {
		resp, err := s.cfg.Providers.LLM.Complete(r.Context(), llm.CompletionRequest{
			SystemPrompt: s.cfg.Session.SystemPrompt,
			Messages: []llm.Message{{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf("Greet %s in one short, warm sentence. Reply with the greeting only.", name),
			}},
		})
		switch {
		case err != nil:
			s.log.Warn("greeting generation failed", "error", err)
		case strings.TrimSpace(resp.Content) != "":
			text = strings.TrimSpace(resp.Content)
		}
	}

	out := greetResponse{Text: text}
	if s.cfg.Providers.TTS != nil {
		voice := req.Voice
		if voice == "" {
			voice = s.cfg.Session.Voice
		}
		wav, err := s.cfg.Providers.TTS.Synthesize(r.Context(), text, voice)
		if err != nil {
			s.log.Warn("greeting synthesis failed", "error", err)
		} else {
			out.WAVB64 = base64.StdEncoding.EncodeToString(wav)
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// handleVoices lists the available synthesis voices. Without a TTS backend
// the list is empty rather than an error, matching the session's degraded
// silent mode.
func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Providers.TTS == nil {
		writeJSON(w, http.StatusOK, voicesResponse{Voices: []tts.Voice{}})
		return
	}

	voices, err := s.cfg.Providers.TTS.ListVoices(r.Context())
	if err != nil {
		s.log.Warn("voice listing failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "tts_unavailable"})
		return
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, voicesResponse{Voices: voices})
}

// writeJSON encodes v with the given status. Encoding failures degrade to a
// plain 500; by then the status line may already be on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding"}`, http.StatusInternalServerError)
	}
}
