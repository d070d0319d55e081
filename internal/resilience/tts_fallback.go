package resilience

import (
	"context"

	"github.com/asterbyte/jarvis/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with automatic failover across
// multiple synthesis backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional TTS provider as a fallback.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Synthesize starts synthesis against the first healthy backend. Failover
// only covers starting the stream; mid-stream failures surface on the
// returned channel's closure.
func (f *TTSFallback) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (<-chan []byte, error) {
		return p.Synthesize(ctx, text)
	})
}

// HealthCheck succeeds when at least one backend is healthy. It bypasses the
// circuit breakers so probing does not affect failover state.
func (f *TTSFallback) HealthCheck(ctx context.Context) error {
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
