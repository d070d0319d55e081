// Package voice plays synthesized responses through the audio output.
//
// The Speaker serializes playback: there is one output device, so
// utterances play one at a time in arrival order. An interrupting
// utterance cancels whatever is currently playing before it starts,
// which is how urgent responses (errors, wake confirmations) cut in.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/asterbyte/jarvis/internal/dispatch"
	"github.com/asterbyte/jarvis/pkg/provider/tts"
	"github.com/asterbyte/jarvis/pkg/types"
)

// Sink consumes one PCM chunk, typically by writing it to the audio
// output device. A non-nil error aborts the utterance.
type Sink func(chunk []byte) error

// Speaker streams synthesized speech to a sink, one utterance at a time.
type Speaker struct {
	tts  tts.Provider
	sink Sink

	mu sync.Mutex // serializes playback

	cancelMu sync.Mutex
	cancel   context.CancelFunc // cancels the in-flight utterance
}

// Compile-time assertion: the Speaker is the voice delivery surface.
var _ dispatch.Deliverer = (*Speaker)(nil)

// NewSpeaker creates a Speaker synthesizing through p and playing
// through sink.
func NewSpeaker(p tts.Provider, sink Sink) *Speaker {
	return &Speaker{tts: p, sink: sink}
}

// Speak synthesizes text and plays it to completion. Utterances play
// one at a time; concurrent callers block until the device is free.
// When interrupt is true the in-flight utterance (if any) is cancelled
// first so this one starts immediately after it unwinds.
func (s *Speaker) Speak(ctx context.Context, text string, interrupt bool) error {
	if text == "" {
		return nil
	}
	if interrupt {
		s.Interrupt()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	chunks, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("voice: synthesize: %w", err)
	}

	for chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("voice: playback interrupted: %w", err)
		}
		if err := s.sink(chunk); err != nil {
			return fmt.Errorf("voice: play chunk: %w", err)
		}
	}
	return ctx.Err()
}

// Interrupt cancels the in-flight utterance, if any. Safe to call at
// any time, from any goroutine.
func (s *Speaker) Interrupt() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Deliver implements [dispatch.Deliverer] for the voice surface. Low
// confidence responses still get spoken; silence would read as a hang.
func (s *Speaker) Deliver(ctx context.Context, resp types.Response, _ types.Source) error {
	slog.Debug("speaking response", "chars", len(resp.Text), "confidence", resp.Confidence)
	return s.Speak(ctx, resp.Text, false)
}

func (s *Speaker) setCancel(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()
}
