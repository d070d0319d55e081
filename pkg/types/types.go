// Package types defines the shared types used across all Jarvis packages.
//
// These types form the lingua franca between the capture pipeline, the wake
// detector, the dispatcher, and the delivery surfaces. They are intentionally
// minimal — each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

import "time"

// AudioSegment is a complete captured phrase flowing from the acquisition
// pipeline to speech recognition. Segments are the atomic unit of audio
// hand-off — one microphone read produces at most one segment.
type AudioSegment struct {
	// PCM is raw 16-bit little-endian signed audio data.
	PCM []byte

	// SampleRate in Hz (e.g., 16000 for speech recognition).
	SampleRate int

	// Channels: 1 for mono microphone input.
	Channels int

	// Seq is a monotonically increasing sequence number assigned at capture
	// time. Gaps indicate segments dropped under backpressure.
	Seq uint64

	// CapturedAt is when the segment's capture completed.
	CapturedAt time.Time
}

// Utterance is a recognized piece of speech produced from an AudioSegment.
type Utterance struct {
	// Text is the recognized speech content, lower-cased and trimmed by the
	// recognition path before wake-word matching.
	Text string

	// Confidence is the recognizer's confidence score (0.0–1.0). May be zero
	// if the recognizer does not report confidence.
	Confidence float64

	// Timestamp is when the underlying audio was captured.
	Timestamp time.Time
}

// Source identifies the channel a command arrived on. Responses are delivered
// back via the same channel.
type Source string

const (
	// SourceVoice marks commands extracted from spoken utterances. Responses
	// are spoken back through the TTS output.
	SourceVoice Source = "voice"

	// SourceWeb marks commands received over the web interface. Responses are
	// pushed back over the originating connection.
	SourceWeb Source = "web"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceVoice || s == SourceWeb
}

// CommandMessage is a command accepted for processing, queued between the
// producing side (wake detector, web interface) and the dispatch pipeline.
type CommandMessage struct {
	// Text is the raw command text.
	Text string

	// Source is the channel the command arrived on.
	Source Source

	// Timestamp is when the command was accepted.
	Timestamp time.Time
}

// Response is the structured result of processing a single command.
type Response struct {
	// Text is the user-facing response text. Always non-empty, even for
	// fallback and error responses.
	Text string

	// Action names what was (or would be) performed, e.g. "executed",
	// "info_retrieved", "plugin:weather", "none".
	Action string

	// Data carries handler-specific structured payload. May be nil.
	Data map[string]any

	// Confidence is the pipeline's confidence in this response (0.0–1.0).
	// Fallback responses carry at most 0.1; error responses carry 0.0.
	Confidence float64

	// Timestamp is when the response was produced. Never precedes the
	// timestamp of the command that produced it.
	Timestamp time.Time
}

// InteractionRecord is a completed command/response exchange as persisted to
// the interaction log. The log is append-only; records are never mutated.
type InteractionRecord struct {
	// Command is the command text as dispatched.
	Command string

	// Response is the response text delivered to the user.
	Response string

	// Intent is the routed intent name ("automation", "information", ...).
	Intent string

	// Source is the channel the command arrived on.
	Source Source

	// Confidence is the confidence of the delivered response.
	Confidence float64

	// Timestamp is when the exchange completed.
	Timestamp time.Time
}
