// Package mock provides a test double for the nlp package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/asterbyte/jarvis/pkg/provider/nlp"
)

// AnalyzeCall records a single invocation of Provider.Analyze.
type AnalyzeCall struct {
	// Text is the command text passed to Analyze.
	Text string
}

// Provider is a mock implementation of nlp.Provider and nlp.Answerer.
type Provider struct {
	mu sync.Mutex

	// Analysis is returned by every Analyze call unless AnalyzeFn is set.
	Analysis nlp.Analysis

	// AnalyzeErr, if non-nil, is returned by every Analyze call.
	AnalyzeErr error

	// AnalyzeFn, if non-nil, overrides all other Analyze behaviour.
	AnalyzeFn func(ctx context.Context, text string) (nlp.Analysis, error)

	// AnswerText is returned by Answer unless AnswerErr is set.
	AnswerText string

	// AnswerErr, if non-nil, is returned by every Answer call.
	AnswerErr error

	// HealthErr, if non-nil, is returned by HealthCheck.
	HealthErr error

	// AnalyzeCalls records every call to Analyze.
	AnalyzeCalls []AnalyzeCall
}

// Analyze records the call and returns the configured analysis.
func (p *Provider) Analyze(ctx context.Context, text string) (nlp.Analysis, error) {
	p.mu.Lock()
	p.AnalyzeCalls = append(p.AnalyzeCalls, AnalyzeCall{Text: text})
	fn := p.AnalyzeFn
	if fn != nil {
		p.mu.Unlock()
		return fn(ctx, text)
	}
	defer p.mu.Unlock()
	if p.AnalyzeErr != nil {
		return nlp.Analysis{}, p.AnalyzeErr
	}
	return p.Analysis, nil
}

// Answer returns AnswerText, AnswerErr.
func (p *Provider) Answer(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AnswerErr != nil {
		return "", p.AnswerErr
	}
	return p.AnswerText, nil
}

// HealthCheck returns HealthErr.
func (p *Provider) HealthCheck(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthErr
}

// CallCount returns the number of Analyze calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.AnalyzeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnalyzeCalls = nil
}

// Compile-time interface assertions.
var (
	_ nlp.Provider = (*Provider)(nil)
	_ nlp.Answerer = (*Provider)(nil)
)
