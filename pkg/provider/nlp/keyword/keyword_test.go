package keyword_test

import (
	"context"
	"testing"

	"github.com/asterbyte/jarvis/pkg/provider/nlp"
	"github.com/asterbyte/jarvis/pkg/provider/nlp/keyword"
)

func TestAnalyze_IntentRouting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		wantIntent string
	}{
		{"automation turn on", "turn on the living room lights", nlp.IntentAutomation},
		{"automation open", "open the garage door", nlp.IntentAutomation},
		{"automation trigger word", "the lights are too dark", nlp.IntentAutomation},
		{"information time", "what time is it", nlp.IntentInformation},
		{"information weather", "what is the weather like today", nlp.IntentInformation},
		{"information general", "who was the first person on the moon", nlp.IntentInformation},
		{"system volume", "mute the volume", nlp.IntentSystemControl},
		{"system trigger", "crank the volume up", nlp.IntentSystemControl},
		{"entertainment play", "play some jazz music", nlp.IntentEntertainment},
		{"entertainment trigger beats automation", "put on a movie", nlp.IntentEntertainment},
		{"productivity remind", "remind me to water the plants", nlp.IntentProductivity},
		{"productivity trigger", "put milk on the shopping list", nlp.IntentProductivity},
		{"personal", "remember that i like green tea", nlp.IntentPersonal},
		{"unknown gibberish", "fhqwhgads blorp", nlp.IntentUnknown},
		{"empty", "", nlp.IntentUnknown},
	}

	a := keyword.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := a.Analyze(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Analyze(%q): %v", tt.text, err)
			}
			if got.Intent != tt.wantIntent {
				t.Errorf("Analyze(%q).Intent = %q; want %q", tt.text, got.Intent, tt.wantIntent)
			}
		})
	}
}

func TestAnalyze_TurnOnFoldsParticleIntoAction(t *testing.T) {
	t.Parallel()
	a := keyword.New()

	got, err := a.Analyze(context.Background(), "turn on the kitchen lights")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Entities[nlp.EntityAction] != "turn on" {
		t.Errorf("action = %q; want %q", got.Entities[nlp.EntityAction], "turn on")
	}
	if got.Entities[nlp.EntityTarget] != "kitchen lights" {
		t.Errorf("target = %q; want %q", got.Entities[nlp.EntityTarget], "kitchen lights")
	}
}

func TestAnalyze_PolitePrefixStillMatches(t *testing.T) {
	t.Parallel()
	a := keyword.New()

	got, err := a.Analyze(context.Background(), "please open the blinds")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Intent != nlp.IntentAutomation {
		t.Errorf("intent = %q; want %q", got.Intent, nlp.IntentAutomation)
	}
	if got.Entities[nlp.EntityAction] != "open" {
		t.Errorf("action = %q; want %q", got.Entities[nlp.EntityAction], "open")
	}
}

func TestAnalyze_InformationEntities(t *testing.T) {
	t.Parallel()
	a := keyword.New()

	got, err := a.Analyze(context.Background(), "what is the weather in berlin")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Entities[nlp.EntityQueryType] != "weather" {
		t.Errorf("query_type = %q; want %q", got.Entities[nlp.EntityQueryType], "weather")
	}
	if got.Entities[nlp.EntitySubject] != "the weather in berlin" {
		t.Errorf("subject = %q; want %q", got.Entities[nlp.EntitySubject], "the weather in berlin")
	}
}

func TestAnalyze_UnknownHasZeroConfidence(t *testing.T) {
	t.Parallel()
	a := keyword.New()

	got, err := a.Analyze(context.Background(), "zyzzyva quux")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Confidence != 0 {
		t.Errorf("confidence = %f; want 0", got.Confidence)
	}
}

func TestAnalyze_NormalisesCase(t *testing.T) {
	t.Parallel()
	a := keyword.New()

	got, err := a.Analyze(context.Background(), "  TURN ON The Lights  ")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Intent != nlp.IntentAutomation {
		t.Errorf("intent = %q; want %q", got.Intent, nlp.IntentAutomation)
	}
}

func TestHealthCheck_AlwaysHealthy(t *testing.T) {
	t.Parallel()
	if err := keyword.New().HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v; want nil", err)
	}
}
