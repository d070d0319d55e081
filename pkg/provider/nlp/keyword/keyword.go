// Package keyword provides a deterministic, dependency-free NLP analyzer
// driven by ordered keyword rules. It is the default analyzer: fast, offline,
// and predictable, at the cost of shallow understanding.
//
// Rules are evaluated in a fixed priority order so that overlapping
// vocabulary ("play" is both automation-ish and entertainment) always
// resolves the same way.
package keyword

import (
	"context"
	"strings"

	"github.com/asterbyte/jarvis/pkg/provider/nlp"
)

// Compile-time assertion that Analyzer satisfies nlp.Provider.
var _ nlp.Provider = (*Analyzer)(nil)

// matchConfidence is the confidence assigned when a rule keyword matches.
// Keyword matching is precise but shallow, so it never claims full certainty.
const matchConfidence = 0.8

// rule maps one intent to its trigger vocabulary. Action verbs double as the
// extracted "action" entity; triggers only select the intent.
type rule struct {
	intent   string
	actions  []string // leading verbs, become the action entity
	triggers []string // anywhere-in-text keywords
}

// rules is evaluated top to bottom; the first hit wins. Entertainment
// precedes automation so "play some music" routes to entertainment even
// though "play" could start an automation.
var rules = []rule{
	{
		intent:   nlp.IntentEntertainment,
		actions:  []string{"play", "pause", "resume", "skip"},
		triggers: []string{"music", "song", "movie", "video", "game", "podcast"},
	},
	{
		intent:   nlp.IntentSystemControl,
		actions:  []string{"mute", "unmute", "restart", "reboot", "shutdown", "lock"},
		triggers: []string{"volume", "brightness", "screen", "wifi", "bluetooth"},
	},
	{
		intent:   nlp.IntentAutomation,
		actions:  []string{"turn", "open", "close", "start", "stop", "launch", "run", "switch", "dim", "set"},
		triggers: []string{"lights", "thermostat", "door", "scene", "routine"},
	},
	{
		intent:   nlp.IntentProductivity,
		actions:  []string{"remind", "schedule", "note", "add"},
		triggers: []string{"reminder", "meeting", "calendar", "todo", "task", "email", "list"},
	},
	{
		intent:   nlp.IntentPersonal,
		actions:  []string{"remember", "call", "greet"},
		triggers: []string{"my name", "preference", "favorite", "birthday"},
	},
}

// questionWords open an information query regardless of other vocabulary.
var questionWords = []string{"what", "when", "where", "who", "why", "how", "tell me", "do you know"}

// Analyzer implements nlp.Provider with static keyword rules. It holds no
// mutable state and is safe for concurrent use.
type Analyzer struct{}

// New returns a ready-to-use Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze matches text against the rule table. Information queries are
// detected first (question word anywhere), then the intent rules in priority
// order. Text that matches nothing yields IntentUnknown with zero confidence.
func (a *Analyzer) Analyze(_ context.Context, text string) (nlp.Analysis, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nlp.Analysis{Intent: nlp.IntentUnknown, Entities: map[string]string{}}, nil
	}

	if isQuestion(text) {
		return analyzeInformation(text), nil
	}

	words := strings.Fields(text)
	for _, r := range rules {
		if action, ok := matchAction(words, r.actions); ok {
			return nlp.Analysis{
				Intent:     r.intent,
				Entities:   actionEntities(text, action),
				Confidence: matchConfidence,
			}, nil
		}
		for _, trig := range r.triggers {
			if strings.Contains(text, trig) {
				return nlp.Analysis{
					Intent:     r.intent,
					Entities:   map[string]string{nlp.EntityTarget: trig},
					Confidence: matchConfidence,
				}, nil
			}
		}
	}

	return nlp.Analysis{Intent: nlp.IntentUnknown, Entities: map[string]string{}}, nil
}

// HealthCheck always succeeds; the analyzer has no external dependencies.
func (a *Analyzer) HealthCheck(_ context.Context) error { return nil }

// isQuestion reports whether text opens with (or contains a leading form of)
// a question word.
func isQuestion(text string) bool {
	for _, q := range questionWords {
		if strings.HasPrefix(text, q+" ") || text == q {
			return true
		}
	}
	return false
}

// analyzeInformation classifies a question by its query type and extracts the
// remainder as the subject.
func analyzeInformation(text string) nlp.Analysis {
	entities := map[string]string{}
	switch {
	case strings.Contains(text, "time"):
		entities[nlp.EntityQueryType] = "time"
	case strings.Contains(text, "weather"), strings.Contains(text, "temperature"):
		entities[nlp.EntityQueryType] = "weather"
	case strings.Contains(text, "news"), strings.Contains(text, "headlines"):
		entities[nlp.EntityQueryType] = "news"
	default:
		entities[nlp.EntityQueryType] = "general"
	}
	entities[nlp.EntitySubject] = trimQuestionPrefix(text)
	return nlp.Analysis{
		Intent:     nlp.IntentInformation,
		Entities:   entities,
		Confidence: matchConfidence,
	}
}

// trimQuestionPrefix strips the leading question phrase and filler words so
// "what is the weather in berlin" becomes "the weather in berlin".
func trimQuestionPrefix(text string) string {
	for _, q := range questionWords {
		if strings.HasPrefix(text, q+" ") {
			text = strings.TrimPrefix(text, q+" ")
			break
		}
	}
	for _, filler := range []string{"is ", "are ", "was ", "about "} {
		text = strings.TrimPrefix(text, filler)
	}
	return strings.TrimSpace(text)
}

// matchAction reports whether one of the first two words is a known action
// verb. Allowing the second position tolerates a leading politeness word
// ("please turn on the lights").
func matchAction(words []string, actions []string) (string, bool) {
	limit := min(len(words), 2)
	for i := 0; i < limit; i++ {
		for _, a := range actions {
			if words[i] == a {
				return a, true
			}
		}
	}
	return "", false
}

// actionEntities splits text into the matched action and everything after it
// as the target. Particles directly following "turn" ("on"/"off") are folded
// into the action so "turn on the lights" yields action "turn on".
func actionEntities(text, action string) map[string]string {
	entities := map[string]string{nlp.EntityAction: action}

	idx := strings.Index(text, action)
	rest := strings.TrimSpace(text[idx+len(action):])

	if action == "turn" || action == "switch" {
		for _, particle := range []string{"on", "off"} {
			if strings.HasPrefix(rest, particle+" ") || rest == particle {
				entities[nlp.EntityAction] = action + " " + particle
				rest = strings.TrimSpace(strings.TrimPrefix(rest, particle))
				break
			}
		}
	}

	rest = strings.TrimPrefix(rest, "the ")
	if rest != "" {
		entities[nlp.EntityTarget] = rest
	}
	return entities
}
