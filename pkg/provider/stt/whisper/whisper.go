// Package whisper provides a Transcriber backed by a whisper.cpp HTTP bridge.
//
// The bridge is a small host-run service that shells out to whisper.cpp (so it
// can use GPU/Metal acceleration outside the container) and exposes a single
// endpoint: POST /transcribe with a multipart "audio" WAV file, returning
// {"text": "..."}.
//
// Typical usage:
//
//	t := whisper.New("http://localhost:8585",
//	    whisper.WithTimeout(30*time.Second),
//	    whisper.WithLanguage("en"),
//	)
//	text, err := t.Transcribe(ctx, pcm, 16000)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/reflections-ai/reflections/pkg/audio"
	"github.com/reflections-ai/reflections/pkg/provider/stt"
)

// Compile-time interface assertion.
var _ stt.Transcriber = (*Transcriber)(nil)

const defaultTimeout = 60 * time.Second

// Transcriber implements stt.Transcriber against a whisper.cpp bridge.
// It is safe for concurrent use.
type Transcriber struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option is a functional option for Transcriber.
type Option func(*Transcriber)

// WithLanguage sets a language hint forwarded to the bridge (e.g., "en").
// Empty means auto-detect.
func WithLanguage(lang string) Option {
	return func(t *Transcriber) {
		t.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 60 s.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		t.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		t.httpClient = c
	}
}

// New constructs a Transcriber talking to the bridge at baseURL
// (e.g., "http://localhost:8585"). A trailing slash is stripped.
func New(baseURL string, opts ...Option) *Transcriber {
	t := &Transcriber{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// transcribeResponse is the JSON body returned by POST /transcribe.
type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe encodes pcm as a WAV file and POSTs it to the bridge's
// /transcribe endpoint as multipart/form-data.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("whisper: empty audio")
	}
	wav := audio.EncodeWAV(pcm, sampleRate, 1)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write wav data: %w", err)
	}
	if t.language != "" {
		if err := mw.WriteField("language", t.language); err != nil {
			return "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("whisper: bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("whisper: decode response: %w", err)
	}
	return strings.TrimSpace(decoded.Text), nil
}
