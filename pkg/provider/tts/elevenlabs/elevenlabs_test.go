package elevenlabs

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_EmptyAPIKey_ReturnsError(t *testing.T) {
	t.Parallel()
	if _, err := New("", "voice-1"); err == nil {
		t.Fatal("expected error for empty apiKey, got nil")
	}
}

func TestNew_EmptyVoiceID_ReturnsError(t *testing.T) {
	t.Parallel()
	if _, err := New("key", ""); err == nil {
		t.Fatal("expected error for empty voiceID, got nil")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	p, err := New("key", "voice-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q; want %q", p.model, defaultModel)
	}
	if p.outputFormat != defaultOutputFmt {
		t.Errorf("outputFormat = %q; want %q", p.outputFormat, defaultOutputFmt)
	}
}

func TestNew_Options(t *testing.T) {
	t.Parallel()
	p, err := New("key", "voice-1",
		WithModel("eleven_turbo_v2"),
		WithOutputFormat("pcm_24000"),
		WithVoiceSettings(0.3, 0.9),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "eleven_turbo_v2" {
		t.Errorf("model = %q; want %q", p.model, "eleven_turbo_v2")
	}
	if p.outputFormat != "pcm_24000" {
		t.Errorf("outputFormat = %q; want %q", p.outputFormat, "pcm_24000")
	}
	if p.settings.Stability != 0.3 || p.settings.SimilarityBoost != 0.9 {
		t.Errorf("settings = %+v; want stability 0.3 similarity 0.9", p.settings)
	}
}

func TestSynthesize_EmptyText_ReturnsError(t *testing.T) {
	t.Parallel()
	p, _ := New("key", "voice-1")
	if _, err := p.Synthesize(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty text, got nil")
	}
}

func TestBuildURLForVoice(t *testing.T) {
	t.Parallel()
	url := buildURLForVoice("abc123", "eleven_flash_v2_5")
	if !strings.Contains(url, "/text-to-speech/abc123/stream-input") {
		t.Errorf("url %q missing voice path segment", url)
	}
	if !strings.Contains(url, "model_id=eleven_flash_v2_5") {
		t.Errorf("url %q missing model query", url)
	}
}

func TestBuildWSMessage_IncludesSettingsWhenSet(t *testing.T) {
	t.Parallel()
	msg, err := buildWSMessage("hello", &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75})
	if err != nil {
		t.Fatalf("buildWSMessage: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["text"] != "hello" {
		t.Errorf("text = %v; want hello", decoded["text"])
	}
	if _, ok := decoded["voice_settings"]; !ok {
		t.Error("voice_settings missing from payload")
	}
}

func TestBuildWSMessage_OmitsSettingsWhenNil(t *testing.T) {
	t.Parallel()
	msg, err := buildWSMessage("hello", nil)
	if err != nil {
		t.Fatalf("buildWSMessage: %v", err)
	}
	if strings.Contains(string(msg), "voice_settings") {
		t.Errorf("payload %s should omit voice_settings", msg)
	}
}
