package resilience

import (
	"context"
	"errors"

	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	"github.com/asterbyte/jarvis/pkg/types"
)

// RecognizerFallback implements [recognizer.Provider] with automatic failover
// across multiple recognition backends. Each backend has its own circuit
// breaker.
type RecognizerFallback struct {
	group *FallbackGroup[recognizer.Provider]
}

// Compile-time interface assertion.
var _ recognizer.Provider = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a [RecognizerFallback] with primary as the
// preferred backend.
func NewRecognizerFallback(primary recognizer.Provider, primaryName string, cfg FallbackConfig) *RecognizerFallback {
	return &RecognizerFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional recognizer as a fallback.
func (f *RecognizerFallback) AddFallback(name string, provider recognizer.Provider) {
	f.group.AddFallback(name, provider)
}

type recognizeResult struct {
	utterance types.Utterance
	noSpeech  bool
}

// Recognize transcribes seg against the first healthy backend.
// [recognizer.ErrNoSpeech] is an answer, not a failure: it neither trips the
// breaker nor triggers failover.
func (f *RecognizerFallback) Recognize(ctx context.Context, seg types.AudioSegment) (types.Utterance, error) {
	res, err := ExecuteWithResult(f.group, func(p recognizer.Provider) (recognizeResult, error) {
		u, err := p.Recognize(ctx, seg)
		if errors.Is(err, recognizer.ErrNoSpeech) {
			return recognizeResult{noSpeech: true}, nil
		}
		if err != nil {
			return recognizeResult{}, err
		}
		return recognizeResult{utterance: u}, nil
	})
	if err != nil {
		return types.Utterance{}, err
	}
	if res.noSpeech {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}
	return res.utterance, nil
}

// HealthCheck succeeds when at least one backend is healthy. It bypasses the
// circuit breakers so probing does not affect failover state.
func (f *RecognizerFallback) HealthCheck(ctx context.Context) error {
	var lastErr error
	for _, p := range f.group.Values() {
		if err := p.HealthCheck(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
