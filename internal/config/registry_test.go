package config_test

import (
	"errors"
	"testing"

	"github.com/reflections-ai/reflections/internal/config"
	"github.com/reflections-ai/reflections/pkg/provider/stt"
	sttmock "github.com/reflections-ai/reflections/pkg/provider/stt/mock"
	"github.com/reflections-ai/reflections/pkg/provider/tts"
	ttsmock "github.com/reflections-ai/reflections/pkg/provider/tts/mock"
)

func TestRegistry_CreateRegistered(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	r.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		return &sttmock.Transcriber{Result: entry.Model}, nil
	})

	tr, err := r.CreateSTT(config.ProviderEntry{Name: "whisper", Model: "base"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if tr == nil {
		t.Fatal("CreateSTT returned nil provider")
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()

	_, err := r.CreateTTS(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("error = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	t.Parallel()
	r := config.NewRegistry()
	r.RegisterTTS("piper", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{Result: []byte("first")}, nil
	})
	r.RegisterTTS("piper", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Provider{Result: []byte("second")}, nil
	})

	p, err := r.CreateTTS(config.ProviderEntry{Name: "piper"})
	if err != nil {
		t.Fatalf("CreateTTS: %v", err)
	}
	wav, err := p.Synthesize(t.Context(), "hi", "amy")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "second" {
		t.Errorf("payload = %q, want second registration", wav)
	}
}

func TestRegistry_FactoryErrorPropagates(t *testing.T) {
	t.Parallel()
	wantErr := errors.New("bad entry")
	r := config.NewRegistry()
	r.RegisterSTT("whisper", func(config.ProviderEntry) (stt.Transcriber, error) {
		return nil, wantErr
	})

	_, err := r.CreateSTT(config.ProviderEntry{Name: "whisper"})
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want factory error", err)
	}
}
