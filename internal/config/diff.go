package config

import "reflect"

// ConfigDiff describes what changed between two configs. Log level and voice
// tuning can be hot-reloaded; provider, memory, and server changes require a
// restart and are only reported.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VoiceChanged is true when any voice pipeline tuning value changed.
	// New sessions pick up the new tuning; running sessions keep theirs.
	VoiceChanged bool
	NewVoice     VoiceConfig

	// ProvidersChanged lists the provider kinds whose configuration changed.
	// Applying these requires a restart.
	ProvidersChanged []string

	// MemoryChanged is true when the memory configuration changed.
	// Applying it requires a restart.
	MemoryChanged bool
}

// RequiresRestart reports whether the diff contains changes that cannot be
// applied to a running server.
func (d ConfigDiff) RequiresRestart() bool {
	return len(d.ProvidersChanged) > 0 || d.MemoryChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Voice != new.Voice {
		d.VoiceChanged = true
		d.NewVoice = new.Voice
	}

	for _, kind := range []struct {
		name     string
		old, new ProviderEntry
	}{
		{"llm", old.Providers.LLM, new.Providers.LLM},
		{"stt", old.Providers.STT, new.Providers.STT},
		{"tts", old.Providers.TTS, new.Providers.TTS},
		{"embeddings", old.Providers.Embeddings, new.Providers.Embeddings},
	} {
		if !providerEntryEqual(kind.old, kind.new) {
			d.ProvidersChanged = append(d.ProvidersChanged, kind.name)
		}
	}

	if old.Memory != new.Memory {
		d.MemoryChanged = true
	}

	return d
}

// providerEntryEqual compares entries field by field. Options may hold
// nested maps, so they are compared structurally.
func providerEntryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return reflect.DeepEqual(a.Options, b.Options)
}
