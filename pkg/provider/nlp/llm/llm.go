// Package llm provides an LLM-backed NLP analyzer built on
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. The analyzer prompts the model for a strict JSON classification and
// also serves free-form information queries via [Analyzer.Answer].
//
// Usage:
//
//	a, err := llm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
//	analysis, err := a.Analyze(ctx, "turn on the lights")
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/asterbyte/jarvis/pkg/provider/nlp"
)

// Compile-time assertions for the interfaces the Analyzer serves.
var (
	_ nlp.Provider = (*Analyzer)(nil)
	_ nlp.Answerer = (*Analyzer)(nil)
)

// classifyPrompt instructs the model to emit one strict JSON object. The
// intent vocabulary mirrors the dispatcher's routing table.
const classifyPrompt = `You classify a single voice-assistant command.
Respond with exactly one JSON object and nothing else:
{"intent": "...", "entities": {...}, "confidence": 0.0}

intent must be one of: automation, information, system_control,
entertainment, productivity, personal, unknown.
entities may include: action, target, query_type, subject.
query_type (information only) must be one of: time, weather, news, general.
confidence is your certainty in the intent, between 0.0 and 1.0.`

// answerPrompt drives free-form information answers.
const answerPrompt = `You are a concise voice assistant. Answer the user's question
in at most two short sentences of plain text. No markdown, no preamble.`

// Analyzer implements nlp.Provider by delegating classification to an LLM.
type Analyzer struct {
	backend anyllmlib.Provider
	model   string
}

// New creates an Analyzer backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// specific model to use (e.g., "gpt-4o-mini").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the provider
// falls back to the relevant environment variable (OPENAI_API_KEY, ...).
func New(providerName, model string, opts ...anyllmlib.Option) (*Analyzer, error) {
	if providerName == "" {
		return nil, fmt.Errorf("nlp/llm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("nlp/llm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("nlp/llm: create %q backend: %w", providerName, err)
	}
	return &Analyzer{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// classification mirrors the JSON shape requested by classifyPrompt.
type classification struct {
	Intent     string            `json:"intent"`
	Entities   map[string]string `json:"entities"`
	Confidence float64           `json:"confidence"`
}

// Analyze asks the model to classify the command and parses the JSON reply.
func (a *Analyzer) Analyze(ctx context.Context, text string) (nlp.Analysis, error) {
	content, err := a.complete(ctx, classifyPrompt, text)
	if err != nil {
		return nlp.Analysis{}, fmt.Errorf("nlp/llm: classify: %w", err)
	}

	var c classification
	if err := json.Unmarshal([]byte(extractJSON(content)), &c); err != nil {
		return nlp.Analysis{}, fmt.Errorf("nlp/llm: parse classification %q: %w", content, err)
	}

	if !validIntent(c.Intent) {
		c.Intent = nlp.IntentUnknown
	}
	if c.Entities == nil {
		c.Entities = map[string]string{}
	}
	c.Confidence = min(max(c.Confidence, 0), 1)

	return nlp.Analysis{
		Intent:     c.Intent,
		Entities:   c.Entities,
		Confidence: c.Confidence,
	}, nil
}

// Answer produces a short free-form answer to a question.
func (a *Analyzer) Answer(ctx context.Context, question string) (string, error) {
	content, err := a.complete(ctx, answerPrompt, question)
	if err != nil {
		return "", fmt.Errorf("nlp/llm: answer: %w", err)
	}
	return strings.TrimSpace(content), nil
}

// HealthCheck issues a minimal completion to verify the backend responds.
func (a *Analyzer) HealthCheck(ctx context.Context) error {
	if _, err := a.complete(ctx, "Reply with the single word: ok", "ping"); err != nil {
		return fmt.Errorf("nlp/llm: health: %w", err)
	}
	return nil
}

// complete runs a single non-streaming completion with a system prompt.
func (a *Analyzer) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: a.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: system},
			{Role: anyllmlib.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// extractJSON trims any prose or code fencing the model wrapped around the
// JSON object, returning the outermost {...} span.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// validIntent reports whether the model returned a routable intent name.
func validIntent(intent string) bool {
	switch intent {
	case nlp.IntentAutomation, nlp.IntentInformation, nlp.IntentSystemControl,
		nlp.IntentEntertainment, nlp.IntentProductivity, nlp.IntentPersonal,
		nlp.IntentUnknown:
		return true
	}
	return false
}
