// Package mock provides a test double for the tts package interface.
package mock

import (
	"context"
	"sync"

	"github.com/asterbyte/jarvis/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	// Text is the text passed to Synthesize.
	Text string
}

// Provider is a mock implementation of tts.Provider. Each Synthesize call
// returns a channel carrying Chunks (or a single empty chunk when unset),
// then closes it.
type Provider struct {
	mu sync.Mutex

	// Chunks are the PCM chunks emitted per Synthesize call.
	Chunks [][]byte

	// SynthesizeErr, if non-nil, is returned by every Synthesize call.
	SynthesizeErr error

	// HealthErr, if non-nil, is returned by HealthCheck.
	HealthErr error

	// SynthesizeCalls records every call to Synthesize.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and streams the configured chunks.
func (p *Provider) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text})
	chunks := p.Chunks
	err := p.SynthesizeErr
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		chunks = [][]byte{make([]byte, 320)}
	}

	ch := make(chan []byte, len(chunks))
	go func() {
		defer close(ch)
		for _, c := range chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// HealthCheck returns HealthErr.
func (p *Provider) HealthCheck(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.HealthErr
}

// CallCount returns the number of Synthesize calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeCalls)
}

// Texts returns the texts passed to Synthesize in order. Thread-safe.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.SynthesizeCalls))
	for i, c := range p.SynthesizeCalls {
		out[i] = c.Text
	}
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
