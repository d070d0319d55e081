// Package queue provides the bounded command queue that decouples command
// intake (wake detection, web clients) from dispatch. It is the only
// synchronization point between the two pipelines.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/asterbyte/jarvis/pkg/types"
)

// ErrQueueFull is returned by Enqueue under the reject-newest policy when the
// queue is at capacity.
var ErrQueueFull = errors.New("queue: command queue full")

const defaultCapacity = 64

// Policy selects the behaviour of Enqueue when the queue is full.
type Policy int

const (
	// RejectNewest refuses the incoming command. The default.
	RejectNewest Policy = iota

	// DropOldest evicts the oldest queued command to make room.
	DropOldest
)

// CommandQueue is a bounded FIFO of pending commands, safe for concurrent
// producers and consumers.
type CommandQueue struct {
	mu       sync.Mutex
	items    []types.CommandMessage
	capacity int
	policy   Policy
	dropped  uint64

	// wake is closed-and-replaced to release waiters when an item arrives.
	wake chan struct{}
}

// Option is a functional option for configuring a CommandQueue.
type Option func(*CommandQueue)

// WithCapacity bounds the queue. Defaults to 64.
func WithCapacity(n int) Option {
	return func(q *CommandQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithPolicy selects the overflow policy. Defaults to [RejectNewest].
func WithPolicy(p Policy) Option {
	return func(q *CommandQueue) { q.policy = p }
}

// New returns an empty command queue.
func New(opts ...Option) *CommandQueue {
	q := &CommandQueue{
		capacity: defaultCapacity,
		policy:   RejectNewest,
		wake:     make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue appends msg. When the queue is full the configured policy decides:
// reject-newest returns [ErrQueueFull], drop-oldest evicts the head. Both
// overflow outcomes are counted and logged.
func (q *CommandQueue) Enqueue(msg types.CommandMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		q.dropped++
		if q.policy == RejectNewest {
			slog.Warn("command queue full, rejecting command",
				"source", msg.Source, "capacity", q.capacity, "dropped_total", q.dropped)
			return ErrQueueFull
		}
		evicted := q.items[0]
		q.items = q.items[1:]
		slog.Warn("command queue full, dropping oldest command",
			"evicted_source", evicted.Source, "capacity", q.capacity, "dropped_total", q.dropped)
	}

	q.items = append(q.items, msg)
	q.signal()
	return nil
}

// Drain removes and returns everything currently queued, oldest first.
// Non-blocking; returns an empty slice when the queue is empty.
func (q *CommandQueue) Drain() []types.CommandMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []types.CommandMessage{}
	}
	return out
}

// Wait blocks until at least one command is queued, then removes and returns
// the oldest. It returns false when ctx is cancelled or timeout elapses with
// the queue still empty.
func (q *CommandQueue) Wait(ctx context.Context, timeout time.Duration) (types.CommandMessage, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, true
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return types.CommandMessage{}, false
		case <-deadline.C:
			return types.CommandMessage{}, false
		case <-wake:
			// Re-check; another waiter may have taken the item.
		}
	}
}

// Len returns the number of pending commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of commands lost to overflow since
// creation.
func (q *CommandQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// signal releases all current waiters. Caller must hold q.mu.
func (q *CommandQueue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}
