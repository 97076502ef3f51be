package config_test

import (
	"testing"

	"github.com/reflections-ai/reflections/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			LLM: config.ProviderEntry{Name: "openai", Model: "gpt-4o-mini"},
			TTS: config.ProviderEntry{Name: "piper", BaseURL: "http://localhost:5002"},
		},
		Voice:  config.VoiceConfig{SampleRate: 16000, ChunkMinChars: 40, ChunkMaxChars: 180},
		Memory: config.MemoryConfig{PostgresDSN: "postgres://localhost/test", EmbeddingDimensions: 1536},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()

	d := config.Diff(old, new)
	if d.LogLevelChanged || d.VoiceChanged || d.MemoryChanged || len(d.ProvidersChanged) != 0 {
		t.Errorf("diff of identical configs = %+v", d)
	}
	if d.RequiresRestart() {
		t.Error("identical configs should not require restart")
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged = false")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.RequiresRestart() {
		t.Error("log level change should not require restart")
	}
}

func TestDiff_VoiceTuning(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Voice.ChunkMaxChars = 120

	d := config.Diff(old, new)
	if !d.VoiceChanged {
		t.Fatal("VoiceChanged = false")
	}
	if d.NewVoice.ChunkMaxChars != 120 {
		t.Errorf("NewVoice.ChunkMaxChars = %d, want 120", d.NewVoice.ChunkMaxChars)
	}
	if d.RequiresRestart() {
		t.Error("voice tuning change should not require restart")
	}
}

func TestDiff_ProviderChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Providers.LLM.Model = "gpt-4o"
	new.Providers.TTS.BaseURL = "http://tts:5002"

	d := config.Diff(old, new)
	if len(d.ProvidersChanged) != 2 {
		t.Fatalf("ProvidersChanged = %v, want llm and tts", d.ProvidersChanged)
	}
	if !d.RequiresRestart() {
		t.Error("provider change should require restart")
	}
}

func TestDiff_ProviderOptionsCompared(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	old.Providers.TTS.Options = map[string]any{"timeout_s": 20}
	new := baseConfig()
	new.Providers.TTS.Options = map[string]any{"timeout_s": 30}

	d := config.Diff(old, new)
	if len(d.ProvidersChanged) != 1 || d.ProvidersChanged[0] != "tts" {
		t.Errorf("ProvidersChanged = %v, want [tts]", d.ProvidersChanged)
	}
}

func TestDiff_MemoryChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Memory.EmbeddingDimensions = 768

	d := config.Diff(old, new)
	if !d.MemoryChanged {
		t.Fatal("MemoryChanged = false")
	}
	if !d.RequiresRestart() {
		t.Error("memory change should require restart")
	}
}
