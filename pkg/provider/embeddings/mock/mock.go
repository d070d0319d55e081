// Package mock provides a deterministic test double for the embeddings
// package interface. Vectors are derived from the input text so equal texts
// always embed identically, which keeps similarity assertions stable.
package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/asterbyte/jarvis/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// Dims is the vector dimensionality. Defaults to 8 when zero.
	Dims int

	// EmbedErr, if non-nil, is returned by Embed and EmbedBatch.
	EmbedErr error

	// EmbedCalls records every text passed to Embed or EmbedBatch, in order.
	EmbedCalls []string
}

func (p *Provider) dims() int {
	if p.Dims <= 0 {
		return 8
	}
	return p.Dims
}

// Embed returns a deterministic pseudo-vector derived from text.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	err := p.EmbedErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return vectorFor(text, p.dims()), nil
}

// EmbedBatch embeds each text via the same deterministic derivation.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.EmbedCalls = append(p.EmbedCalls, texts...)
	err := p.EmbedErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t, p.dims())
	}
	return out, nil
}

// Dimensions returns the configured dimensionality.
func (p *Provider) Dimensions() int { return p.dims() }

// ModelID identifies the mock.
func (p *Provider) ModelID() string { return "mock-embeddings" }

// CallCount returns the number of embedded texts. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.EmbedCalls)
}

// vectorFor hashes text into a reproducible unit-scale vector.
func vectorFor(text string, dims int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<31)
	}
	return vec
}

// Ensure Provider implements embeddings.Provider at compile time.
var _ embeddings.Provider = (*Provider)(nil)
