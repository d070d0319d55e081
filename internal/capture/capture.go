// Package capture owns the microphone and turns it into a stream of bounded
// audio segments for the recognition path.
//
// Acquisition runs on its own goroutine. Completed segments are pushed into a
// bounded channel with drop-oldest overflow: audio is perishable, so staying
// current beats completeness when the consumer falls behind.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asterbyte/jarvis/internal/bus"
	"github.com/asterbyte/jarvis/pkg/types"
)

// ErrIdleTimeout is returned by a Microphone when no speech arrived within
// the listen window. The capture loop treats it as a normal cycle, not a
// device failure.
var ErrIdleTimeout = errors.New("capture: idle timeout")

// Microphone is the audio device abstraction. Listen blocks until a phrase
// completes, the idle timeout elapses (ErrIdleTimeout), or ctx is cancelled.
type Microphone interface {
	Listen(ctx context.Context) (types.AudioSegment, error)
	Close() error
}

const (
	defaultBufferSegments = 8
	initialBackoff        = 500 * time.Millisecond
	maxBackoff            = 30 * time.Second
	defaultStopGrace      = 3 * time.Second
)

// Capture runs the acquisition loop. Start and Stop are idempotent and emit
// listening_start/listening_stop events exactly once per transition.
type Capture struct {
	mic    Microphone
	events *bus.EventBus

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	out     chan types.AudioSegment
	seq     atomic.Uint64
	dropped atomic.Uint64

	stopGrace time.Duration
	onDrop    func() // optional metrics hook
}

// Option is a functional option for configuring a Capture.
type Option func(*Capture)

// WithBufferSegments sets the segment hand-off capacity. Defaults to 8.
func WithBufferSegments(n int) Option {
	return func(c *Capture) {
		if n > 0 {
			c.out = make(chan types.AudioSegment, n)
		}
	}
}

// WithEvents sets the event bus for listening transitions.
func WithEvents(b *bus.EventBus) Option {
	return func(c *Capture) { c.events = b }
}

// WithDropHook installs a callback invoked once per dropped segment.
func WithDropHook(fn func()) Option {
	return func(c *Capture) { c.onDrop = fn }
}

// WithStopGrace bounds how long Stop waits for the acquisition goroutine
// before abandoning it. Defaults to 3s.
func WithStopGrace(d time.Duration) Option {
	return func(c *Capture) {
		if d > 0 {
			c.stopGrace = d
		}
	}
}

// New returns a stopped Capture reading from mic.
func New(mic Microphone, opts ...Option) *Capture {
	c := &Capture{
		mic:       mic,
		out:       make(chan types.AudioSegment, defaultBufferSegments),
		stopGrace: defaultStopGrace,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Segments returns the channel completed segments are delivered on.
func (c *Capture) Segments() <-chan types.AudioSegment {
	return c.out
}

// Dropped returns the total number of segments lost to overflow.
func (c *Capture) Dropped() uint64 {
	return c.dropped.Load()
}

// Start launches the acquisition goroutine. Calling Start on a running
// Capture is a no-op.
func (c *Capture) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	if c.events != nil {
		c.events.Emit(bus.EventListeningStart, nil)
	}
	slog.Info("audio capture started")

	go c.loop(loopCtx)
}

// Stop halts acquisition and waits up to the stop grace period for the
// goroutine to exit; a microphone that ignores cancellation is abandoned
// rather than wedging shutdown. Calling Stop on a stopped Capture is a
// no-op.
func (c *Capture) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	grace := time.NewTimer(c.stopGrace)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		slog.Warn("acquisition worker did not exit within grace period, abandoning",
			"grace", c.stopGrace)
	}

	if c.events != nil {
		c.events.Emit(bus.EventListeningStop, nil)
	}
	slog.Info("audio capture stopped")
}

// loop reads phrases from the microphone until ctx is cancelled. Device
// errors are logged and retried with exponential backoff; the loop never
// terminates the process.
func (c *Capture) loop(ctx context.Context) {
	defer close(c.done)

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		seg, err := c.mic.Listen(ctx)
		switch {
		case err == nil:
			backoff = initialBackoff
			seg.Seq = c.seq.Add(1)
			if seg.CapturedAt.IsZero() {
				seg.CapturedAt = time.Now()
			}
			c.push(seg)

		case errors.Is(err, ErrIdleTimeout):
			// Nothing heard this window; listen again.
			backoff = initialBackoff

		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return

		default:
			slog.Error("microphone read failed, backing off", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

// push delivers seg to the hand-off channel, evicting the oldest buffered
// segment when full.
func (c *Capture) push(seg types.AudioSegment) {
	for {
		select {
		case c.out <- seg:
			return
		default:
		}
		select {
		case old := <-c.out:
			n := c.dropped.Add(1)
			if c.onDrop != nil {
				c.onDrop()
			}
			slog.Warn("segment buffer full, dropping oldest audio",
				"dropped_seq", old.Seq, "dropped_total", n)
		default:
			// Consumer raced us and drained the buffer; retry the send.
		}
	}
}
