package config_test

import (
	"strings"
	"testing"

	"github.com/asterbyte/jarvis/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
wake:
  phrases: ["jarvis", "hey jarvis"]
  arm_timeout_ms: 8000
  min_command_chars: 3
  fuzzy: true
  fuzzy_threshold: 0.9
audio:
  sample_rate: 16000
  channels: 1
  buffer_segments: 8
queue:
  capacity: 64
  overflow_policy: reject-newest
providers:
  recognizer:
    name: whisper
    base_url: "http://localhost:9000"
  nlp:
    name: keyword
  tts:
    name: elevenlabs
    api_key: secret
  embeddings:
    name: openai
    api_key: secret
memory:
  postgres_dsn: "postgres://localhost/jarvis"
  embedding_dimensions: 1536
  retention_days: 90
monitor:
  interval_ms: 60000
  health_interval_ms: 30000
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q; want :8080", cfg.Server.ListenAddr)
	}
	if len(cfg.Wake.Phrases) != 2 || cfg.Wake.Phrases[0] != "jarvis" {
		t.Errorf("wake.phrases = %v; want [jarvis, hey jarvis]", cfg.Wake.Phrases)
	}
	if cfg.Queue.OverflowPolicy != config.OverflowRejectNewest {
		t.Errorf("overflow_policy = %q; want reject-newest", cfg.Queue.OverflowPolicy)
	}
	if cfg.Memory.EmbeddingDimensions != 1536 {
		t.Errorf("embedding_dimensions = %d; want 1536", cfg.Memory.EmbeddingDimensions)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  not_a_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidOverflowPolicy(t *testing.T) {
	t.Parallel()
	yaml := `
queue:
  overflow_policy: drop-newest
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid overflow policy, got nil")
	}
	if !strings.Contains(err.Error(), "overflow_policy") {
		t.Errorf("error should mention overflow_policy, got: %v", err)
	}
}

func TestValidate_FuzzyThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
wake:
  fuzzy_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range fuzzy threshold, got nil")
	}
}

func TestValidate_DuplicatePluginServerNames(t *testing.T) {
	t.Parallel()
	yaml := `
plugins:
  servers:
    - name: tools
      transport: stdio
      command: "mytool --serve"
    - name: tools
      transport: stdio
      command: "othertool --serve"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate plugin server names, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_StdioRequiresCommand(t *testing.T) {
	t.Parallel()
	yaml := `
plugins:
  servers:
    - name: tools
      transport: stdio
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for stdio transport without command, got nil")
	}
	if !strings.Contains(err.Error(), "command is required") {
		t.Errorf("error should mention command, got: %v", err)
	}
}

func TestValidate_StreamableHTTPRequiresURL(t *testing.T) {
	t.Parallel()
	yaml := `
plugins:
  servers:
    - name: remote
      transport: streamable-http
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for streamable-http transport without url, got nil")
	}
	if !strings.Contains(err.Error(), "url is required") {
		t.Errorf("error should mention url, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
queue:
  capacity: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "capacity") {
		t.Errorf("error should mention capacity, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	recNames := config.ValidProviderNames["recognizer"]
	if len(recNames) == 0 {
		t.Fatal("ValidProviderNames[\"recognizer\"] should not be empty")
	}
	found := false
	for _, n := range recNames {
		if n == "whisper" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"recognizer\"] should contain \"whisper\"")
	}
}
