// Package recognizer defines the Provider interface for speech recognition
// backends.
//
// A recognizer turns a complete captured audio segment into an utterance.
// Unlike streaming transcription, recognition here is phrase-at-a-time: the
// acquisition pipeline hands over one bounded segment per microphone read and
// expects at most one utterance back. Segments with no intelligible speech
// are an expected outcome, not a failure, and are reported via [ErrNoSpeech].
//
// Implementations must be safe for concurrent use.
package recognizer

import (
	"context"
	"errors"

	"github.com/asterbyte/jarvis/pkg/types"
)

// ErrNoSpeech is returned by Recognize when the segment contains no
// recognizable speech. Callers treat it as a silent skip, never as an error
// worth logging above debug level.
var ErrNoSpeech = errors.New("recognizer: no recognizable speech")

// Provider is the abstraction over any speech recognition backend.
type Provider interface {
	// Recognize transcribes a single captured segment. On success the returned
	// utterance carries the raw recognized text; callers normalize it before
	// matching. Returns [ErrNoSpeech] when the audio holds no usable speech,
	// or another error when the backend is unreachable or rejects the request.
	Recognize(ctx context.Context, seg types.AudioSegment) (types.Utterance, error)

	// HealthCheck reports whether the backend is currently able to serve
	// recognition requests.
	HealthCheck(ctx context.Context) error
}
