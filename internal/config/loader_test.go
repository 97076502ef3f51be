package config_test

import (
	"strings"
	"testing"

	"github.com/reflections-ai/reflections/internal/config"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_ChunkBoundsOrdering(t *testing.T) {
	t.Parallel()
	yaml := `
voice:
  chunk_min_chars: 200
  chunk_max_chars: 100
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for inverted chunk bounds, got nil")
	}
	if !strings.Contains(err.Error(), "chunk_min_chars") {
		t.Errorf("error should mention chunk_min_chars, got: %v", err)
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	t.Parallel()
	yaml := `
voice:
  speech_rms_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range threshold, got nil")
	}
	if !strings.Contains(err.Error(), "speech_rms_threshold") {
		t.Errorf("error should mention speech_rms_threshold, got: %v", err)
	}
}

func TestValidate_NegativeTimings(t *testing.T) {
	t.Parallel()
	yaml := `
voice:
  min_utterance_ms: -100
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative timing, got nil")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
voice:
  speech_rms_threshold: -0.5
memory:
  replay_window: -3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "speech_rms_threshold", "replay_window"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_FullConfigIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: info
providers:
  llm:
    name: openai
    model: gpt-4o-mini
    api_key: sk-test
  stt:
    name: whisper
    base_url: http://localhost:9000
  tts:
    name: piper
    base_url: http://localhost:5002
  embeddings:
    name: openai
    model: text-embedding-3-small
voice:
  sample_rate: 16000
  speech_rms_threshold: 0.02
  min_utterance_ms: 800
  silence_hangover_ms: 700
  endpoint_tick_ms: 50
  partial_interval_ms: 900
  partial_window_ms: 3000
  chunk_min_chars: 40
  chunk_max_chars: 180
  reply_timeout_s: 60
  synth_queue_depth: 8
  default_voice: amy
  system_prompt: "You are a thoughtful companion."
memory:
  postgres_dsn: "postgres://localhost/test"
  embedding_dimensions: 1536
  replay_window: 12
resilience:
  failure_threshold: 5
  reset_timeout_s: 30
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Voice.SampleRate != 16000 {
		t.Errorf("sample_rate = %d, want 16000", cfg.Voice.SampleRate)
	}
	if cfg.Voice.DefaultVoice != "amy" {
		t.Errorf("default_voice = %q, want amy", cfg.Voice.DefaultVoice)
	}
	if cfg.Providers.STT.BaseURL != "http://localhost:9000" {
		t.Errorf("stt base_url = %q", cfg.Providers.STT.BaseURL)
	}
	if cfg.Memory.ReplayWindow != 12 {
		t.Errorf("replay_window = %d, want 12", cfg.Memory.ReplayWindow)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  max_connections: 10
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	llmNames := config.ValidProviderNames["llm"]
	if len(llmNames) == 0 {
		t.Fatal("ValidProviderNames[\"llm\"] should not be empty")
	}
	found := false
	for _, n := range llmNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"llm\"] should contain \"openai\"")
	}
}
