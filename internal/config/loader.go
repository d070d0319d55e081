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
	"recognizer": {"whisper", "whisper-native"},
	"nlp":        {"keyword", "openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts":        {"elevenlabs"},
	"embeddings": {"openai"},
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

	// Wake
	if cfg.Wake.ArmTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("wake.arm_timeout_ms %d must not be negative", cfg.Wake.ArmTimeoutMS))
	}
	if cfg.Wake.MinCommandChars < 0 {
		errs = append(errs, fmt.Errorf("wake.min_command_chars %d must not be negative", cfg.Wake.MinCommandChars))
	}
	if cfg.Wake.FuzzyThreshold != 0 && (cfg.Wake.FuzzyThreshold <= 0 || cfg.Wake.FuzzyThreshold > 1) {
		errs = append(errs, fmt.Errorf("wake.fuzzy_threshold %.2f is out of range (0, 1]", cfg.Wake.FuzzyThreshold))
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 0 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is out of range [0, 2]", cfg.Audio.Channels))
	}

	// Queue
	if cfg.Queue.Capacity < 0 {
		errs = append(errs, fmt.Errorf("queue.capacity %d must not be negative", cfg.Queue.Capacity))
	}
	if cfg.Queue.OverflowPolicy != "" && !cfg.Queue.OverflowPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("queue.overflow_policy %q is invalid; valid values: reject-newest, drop-oldest", cfg.Queue.OverflowPolicy))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("recognizer", cfg.Providers.Recognizer.Name)
	validateProviderName("nlp", cfg.Providers.NLP.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Embeddings ↔ memory dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Memory.EmbeddingDimensions > 0 && cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.embedding_dimensions is set but memory.postgres_dsn is empty; semantic recall requires the postgres store")
	}
	if cfg.Memory.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("memory.retention_days %d must not be negative", cfg.Memory.RetentionDays))
	}

	// Memory availability
	if cfg.Memory.PostgresDSN == "" {
		slog.Warn("memory.postgres_dsn is empty; interactions will not survive a restart")
	}

	// Plugin servers
	namesSeen := make(map[string]int, len(cfg.Plugins.Servers))
	for i, srv := range cfg.Plugins.Servers {
		prefix := fmt.Sprintf("plugins.servers[%d]", i)
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			if prev, ok := namesSeen[srv.Name]; ok {
				errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of plugins.servers[%d]", prefix, srv.Name, prev))
			}
			namesSeen[srv.Name] = i
		}
		if srv.Transport != "" && !srv.Transport.IsValid() {
			errs = append(errs, fmt.Errorf("%s.transport %q is invalid; valid values: stdio, streamable-http", prefix, srv.Transport))
		}
		if srv.Transport == TransportStdio && srv.Command == "" {
			errs = append(errs, fmt.Errorf("%s.command is required when transport is stdio", prefix))
		}
		if srv.Transport == TransportStreamableHTTP && srv.URL == "" {
			errs = append(errs, fmt.Errorf("%s.url is required when transport is streamable-http", prefix))
		}
	}

	// Monitor
	if cfg.Monitor.IntervalMS < 0 {
		errs = append(errs, fmt.Errorf("monitor.interval_ms %d must not be negative", cfg.Monitor.IntervalMS))
	}
	if cfg.Monitor.HealthIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("monitor.health_interval_ms %d must not be negative", cfg.Monitor.HealthIntervalMS))
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
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
