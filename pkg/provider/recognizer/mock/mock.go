// Package mock provides a test double for the recognizer package interface.
//
// Pre-populate Utterances with the values the consumer should receive in
// order; once exhausted, Recognize returns recognizer.ErrNoSpeech. Set
// RecognizeErr to force every call to fail, or RecognizeFn for full control.
package mock

import (
	"context"
	"sync"

	"github.com/asterbyte/jarvis/pkg/provider/recognizer"
	"github.com/asterbyte/jarvis/pkg/types"
)

// RecognizeCall records a single invocation of Provider.Recognize.
type RecognizeCall struct {
	// Seg is the segment passed to Recognize.
	Seg types.AudioSegment
}

// Provider is a mock implementation of recognizer.Provider.
type Provider struct {
	mu sync.Mutex

	// Utterances are returned by successive Recognize calls in order. When the
	// slice is exhausted, Recognize returns recognizer.ErrNoSpeech.
	Utterances []types.Utterance

	// RecognizeErr, if non-nil, is returned by every Recognize call.
	RecognizeErr error

	// RecognizeFn, if non-nil, overrides all other behaviour.
	RecognizeFn func(ctx context.Context, seg types.AudioSegment) (types.Utterance, error)

	// HealthErr, if non-nil, is returned by HealthCheck.
	HealthErr error

	// RecognizeCalls records every call to Recognize.
	RecognizeCalls []RecognizeCall

	next int
}

// Recognize records the call and returns the next configured utterance.
func (p *Provider) Recognize(ctx context.Context, seg types.AudioSegment) (types.Utterance, error) {
	p.mu.Lock()
	p.RecognizeCalls = append(p.RecognizeCalls, RecognizeCall{Seg: seg})
	fn := p.RecognizeFn
	if fn != nil {
		p.mu.Unlock()
		return fn(ctx, seg)
	}
	defer p.mu.Unlock()
	if p.RecognizeErr != nil {
		return types.Utterance{}, p.RecognizeErr
	}
	if p.next >= len(p.Utterances) {
		return types.Utterance{}, recognizer.ErrNoSpeech
	}
	utt := p.Utterances[p.next]
	p.next++
	return utt, nil
}

// HealthCheck returns HealthErr.
func (p *Provider) HealthCheck(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthErr
}

// CallCount returns the number of Recognize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.RecognizeCalls)
}

// Reset clears all recorded calls and replay state. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RecognizeCalls = nil
	p.next = 0
}

// Ensure Provider implements recognizer.Provider at compile time.
var _ recognizer.Provider = (*Provider)(nil)
