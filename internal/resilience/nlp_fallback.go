package resilience

import (
	"context"

	"github.com/asterbyte/jarvis/pkg/provider/nlp"
)

// NLPFallback implements [nlp.Provider] with automatic failover across
// multiple intent analyzers. Each backend has its own circuit breaker.
//
// A common deployment pairs an LLM analyzer as primary with the offline
// keyword analyzer as the always-available fallback.
type NLPFallback struct {
	group *FallbackGroup[nlp.Provider]
}

// Compile-time interface assertion.
var _ nlp.Provider = (*NLPFallback)(nil)

// NewNLPFallback creates an [NLPFallback] with primary as the preferred
// analyzer.
func NewNLPFallback(primary nlp.Provider, primaryName string, cfg FallbackConfig) *NLPFallback {
	return &NLPFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional analyzer as a fallback.
func (f *NLPFallback) AddFallback(name string, provider nlp.Provider) {
	f.group.AddFallback(name, provider)
}

// Analyze classifies text against the first healthy analyzer.
func (f *NLPFallback) Analyze(ctx context.Context, text string) (nlp.Analysis, error) {
	return ExecuteWithResult(f.group, func(p nlp.Provider) (nlp.Analysis, error) {
		return p.Analyze(ctx, text)
	})
}

// HealthCheck succeeds when at least one analyzer is healthy. It bypasses the
// circuit breakers so probing does not affect failover state.
func (f *NLPFallback) HealthCheck(ctx context.Context) error {
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
