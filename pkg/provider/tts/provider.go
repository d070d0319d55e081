// Package tts defines the Provider interface for speech synthesis backends.
//
// A TTS provider converts one response text into a stream of raw PCM audio
// chunks. Serialization of playback (one utterance at a time over the single
// output device) is the speaker's job, not the provider's.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any speech synthesis backend.
type Provider interface {
	// Synthesize converts text to speech. The returned channel emits raw PCM
	// audio chunks as they become available and is closed when synthesis
	// completes or ctx is cancelled. A non-nil error means synthesis could not
	// start; errors after the first chunk terminate the stream silently.
	Synthesize(ctx context.Context, text string) (<-chan []byte, error)

	// HealthCheck reports whether the backend is currently able to serve
	// synthesis requests.
	HealthCheck(ctx context.Context) error
}
