// Package bus provides a lightweight in-process event bus for pipeline
// lifecycle notifications (wake detections, listening transitions, command
// completions). Handlers run synchronously on the emitting goroutine.
package bus

import (
	"log/slog"
	"sync"
)

// Event names emitted by the pipelines.
const (
	EventWakeWordDetected = "wake_word_detected"
	EventListeningStart   = "listening_start"
	EventListeningStop    = "listening_stop"
	EventCommandProcessed = "command_processed"
	EventCommandFailed    = "command_failed"
)

// Handler receives the event name and an optional payload.
type Handler func(event string, payload any)

// EventBus fans events out to registered handlers. Safe for concurrent use.
// Handlers for an event run in registration order; a panicking handler is
// recovered and logged so it cannot take down the emitter or its siblings.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New returns an empty event bus.
func New() *EventBus {
	return &EventBus{handlers: make(map[string][]Handler)}
}

// Register subscribes h to event. The same handler may be registered more
// than once and will be invoked once per registration.
func (b *EventBus) Register(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Emit delivers the event to all handlers registered for it, in registration
// order. Emitting an event nobody listens to is a no-op.
func (b *EventBus) Emit(event string, payload any) {
	b.mu.RLock()
	// Snapshot so handlers may register new handlers without deadlocking.
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	b.mu.RUnlock()

	for _, h := range hs {
		b.invoke(event, payload, h)
	}
}

func (b *EventBus) invoke(event string, payload any, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	h(event, payload)
}
