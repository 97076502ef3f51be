// Package piper provides a Provider backed by a local speech bridge.
//
// The bridge is a small host-run service wrapping a local synthesiser (Piper,
// or the platform voice stack during development) and exposes a single
// endpoint: POST /speak with a JSON body {"text": "...", "voice": "..."},
// returning a PCM16 WAV response.
//
// The bridge has no catalogue endpoint, so the available voices are supplied
// at construction time via WithVoices and served from memory.
package piper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reflections-ai/reflections/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout = 30 * time.Second

	// maxTextLen mirrors the bridge's request validation; longer chunks are
	// rejected locally with a clearer error.
	maxTextLen = 2000
)

// Provider implements tts.Provider against a local speech bridge.
// It is safe for concurrent use.
type Provider struct {
	baseURL    string
	voices     []tts.Voice
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithVoices sets the voice catalogue reported by ListVoices.
func WithVoices(voices []tts.Voice) Option {
	return func(p *Provider) {
		p.voices = voices
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// New constructs a Provider talking to the bridge at baseURL
// (e.g., "http://localhost:8686"). A trailing slash is stripped.
func New(baseURL string, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// speakRequest is the JSON body sent to POST /speak.
type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Synthesize POSTs text to the bridge's /speak endpoint and returns the WAV
// response body.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("piper: empty text")
	}
	if len(text) > maxTextLen {
		return nil, fmt.Errorf("piper: text too long (%d > %d chars)", len(text), maxTextLen)
	}

	body, err := json.Marshal(speakRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("piper: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/speak", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("piper: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("piper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("piper: bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("piper: read response: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("piper: empty audio response")
	}
	return wav, nil
}

// ListVoices returns the configured voice catalogue.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	out := make([]tts.Voice, len(p.voices))
	copy(out, p.voices)
	return out, nil
}
