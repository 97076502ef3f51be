package piper_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reflections-ai/reflections/pkg/provider/tts"
	"github.com/reflections-ai/reflections/pkg/provider/tts/piper"
)

func TestSynthesizePostsJSON(t *testing.T) {
	var got struct {
		Text  string `json:"text"`
		Voice string `json:"voice"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speak" {
			t.Errorf("path: got %q, want /speak", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFfake-wav"))
	}))
	defer srv.Close()

	p := piper.New(srv.URL)
	wav, err := p.Synthesize(context.Background(), "Hello there.", "amy")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "RIFFfake-wav" {
		t.Errorf("wav payload: got %q", wav)
	}
	if got.Text != "Hello there." {
		t.Errorf("text: got %q", got.Text)
	}
	if got.Voice != "amy" {
		t.Errorf("voice: got %q", got.Voice)
	}
}

func TestSynthesizeRejectsEmptyAndOversized(t *testing.T) {
	p := piper.New("http://localhost:1")
	if _, err := p.Synthesize(context.Background(), "   ", ""); err == nil {
		t.Error("expected error for blank text")
	}
	if _, err := p.Synthesize(context.Background(), strings.Repeat("a", 2001), ""); err == nil {
		t.Error("expected error for oversized text")
	}
}

func TestSynthesizeBridgeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "say failed rc=1", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := piper.New(srv.URL)
	_, err := p.Synthesize(context.Background(), "hi", "")
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
	if !strings.Contains(err.Error(), "say failed") {
		t.Errorf("error should carry the bridge message, got %v", err)
	}
}

func TestListVoices(t *testing.T) {
	p := piper.New("http://localhost:1", piper.WithVoices([]tts.Voice{
		{ID: "amy", Name: "Amy"},
		{ID: "ryan", Name: "Ryan"},
	}))
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 || voices[0].ID != "amy" || voices[1].ID != "ryan" {
		t.Errorf("unexpected voices: %+v", voices)
	}
}
