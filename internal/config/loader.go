package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"whisper"},
	"tts":        {"piper"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; sessions will emit stub transcripts")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; sessions will emit a fixed fallback reply")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; replies will be text-only")
	}

	// Voice pipeline tuning
	v := cfg.Voice
	if v.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("voice.sample_rate %d must not be negative", v.SampleRate))
	}
	if v.SpeechRMSThreshold < 0 || v.SpeechRMSThreshold > 1 {
		errs = append(errs, fmt.Errorf("voice.speech_rms_threshold %.3f is out of range (0, 1]", v.SpeechRMSThreshold))
	}
	if v.MinUtteranceMs < 0 || v.SilenceHangoverMs < 0 || v.EndpointTickMs < 0 ||
		v.PartialIntervalMs < 0 || v.PartialWindowMs < 0 || v.ReplyTimeoutS < 0 {
		errs = append(errs, errors.New("voice timing values must not be negative"))
	}
	if v.ChunkMinChars < 0 || v.ChunkMaxChars < 0 {
		errs = append(errs, errors.New("voice chunk bounds must not be negative"))
	}
	if v.ChunkMinChars > 0 && v.ChunkMaxChars > 0 && v.ChunkMinChars > v.ChunkMaxChars {
		errs = append(errs, fmt.Errorf("voice.chunk_min_chars %d exceeds voice.chunk_max_chars %d", v.ChunkMinChars, v.ChunkMaxChars))
	}
	if v.SilenceHangoverMs > 0 && v.EndpointTickMs > v.SilenceHangoverMs {
		slog.Warn("voice.endpoint_tick_ms exceeds voice.silence_hangover_ms; endpoint detection will be coarse",
			"tick_ms", v.EndpointTickMs,
			"hangover_ms", v.SilenceHangoverMs,
		)
	}

	// Embeddings ↔ memory dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}

	// Memory availability
	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; conversation replay and semantic recall are disabled")
	}
	if cfg.Memory.ReplayWindow < 0 {
		errs = append(errs, fmt.Errorf("memory.replay_window %d must not be negative", cfg.Memory.ReplayWindow))
	}

	// Resilience
	if cfg.Resilience.FailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("resilience.failure_threshold %d must not be negative", cfg.Resilience.FailureThreshold))
	}
	if cfg.Resilience.ResetTimeoutS < 0 {
		errs = append(errs, fmt.Errorf("resilience.reset_timeout_s %d must not be negative", cfg.Resilience.ResetTimeoutS))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
