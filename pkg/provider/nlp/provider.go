// Package nlp defines the Provider interface for command analysis backends.
//
// An NLP provider turns raw command text into a structured [Analysis]: an
// intent name, extracted entities, and a confidence score. The dispatch
// pipeline routes solely on the returned intent; providers never execute
// anything themselves.
//
// Implementations must be safe for concurrent use.
package nlp

import "context"

// Intent names produced by the bundled analyzers. Providers may emit other
// names; the dispatcher treats anything it does not recognise as unknown.
const (
	IntentAutomation    = "automation"
	IntentInformation   = "information"
	IntentSystemControl = "system_control"
	IntentEntertainment = "entertainment"
	IntentProductivity  = "productivity"
	IntentPersonal      = "personal"
	IntentUnknown       = "unknown"
)

// Well-known entity keys shared between analyzers and intent handlers.
const (
	EntityAction    = "action"
	EntityTarget    = "target"
	EntityQueryType = "query_type"
	EntitySubject   = "subject"
)

// Analysis is the structured result of analysing one command.
type Analysis struct {
	// Intent is the routed intent name, e.g. "automation" or "information".
	Intent string

	// Entities holds extracted slots keyed by the Entity* constants.
	Entities map[string]string

	// Confidence is the analyzer's confidence in the intent (0.0–1.0).
	Confidence float64
}

// Provider is the abstraction over any command analysis backend.
type Provider interface {
	// Analyze extracts intent, entities, and confidence from raw command text.
	// The text has already been lower-cased and trimmed by the caller.
	Analyze(ctx context.Context, text string) (Analysis, error)

	// HealthCheck reports whether the backend is currently able to serve
	// analysis requests.
	HealthCheck(ctx context.Context) error
}

// Answerer is an optional extension implemented by providers that can answer
// free-form information queries (typically LLM-backed). The information
// handler uses it for general queries when available.
type Answerer interface {
	// Answer produces a short, direct answer to a free-form question.
	Answer(ctx context.Context, question string) (string, error)
}
