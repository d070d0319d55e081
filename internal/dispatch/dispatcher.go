// Package dispatch implements the asynchronous command pipeline: analyze,
// build context, route by intent, persist, deliver.
//
// The pipeline is total: [Dispatcher.Dispatch] always produces a response.
// Analyzer failures, handler failures, and even handler panics collapse to a
// spoken error response; persistence and delivery failures are logged and
// never propagate back to the caller.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/asterbyte/jarvis/internal/bus"
	"github.com/asterbyte/jarvis/pkg/memory"
	"github.com/asterbyte/jarvis/pkg/provider/automation"
	"github.com/asterbyte/jarvis/pkg/provider/nlp"
	"github.com/asterbyte/jarvis/pkg/types"
)

const (
	fallbackText = "I'm not sure how to help with that. Could you rephrase your request?"
	errorText    = "I encountered an error processing that command. Please try again."

	fallbackConfidence = 0.1
)

// Deliverer pushes a finished response back to the surface a command came
// from (voice speaker, web socket).
type Deliverer interface {
	Deliver(ctx context.Context, resp types.Response, source types.Source) error
}

// PluginChain is the unknown-intent fallback: an ordered set of plugins that
// may claim a command. handled is false when no plugin claimed it.
type PluginChain interface {
	TryPlugins(ctx context.Context, command string, entities map[string]string) (resp types.Response, handled bool, err error)
}

// Observer receives one notification per dispatched command. Used to wire
// metrics without coupling the pipeline to the metrics backend.
type Observer func(intent string, source types.Source, status string, elapsed time.Duration)

// Dispatcher runs the command pipeline.
type Dispatcher struct {
	nlp        nlp.Provider
	automation automation.Provider
	store      memory.Store
	builder    *ContextBuilder
	plugins    PluginChain
	deliverers map[types.Source]Deliverer
	events     *bus.EventBus
	observe    Observer
	now        func() time.Time

	handlers map[Intent]handlerFunc
}

// Option is a functional option for configuring a Dispatcher.
type Option func(*Dispatcher)

// WithPlugins installs the unknown-intent plugin chain.
func WithPlugins(p PluginChain) Option {
	return func(d *Dispatcher) { d.plugins = p }
}

// WithDeliverer registers the response surface for a source. Commands from
// sources without a deliverer complete without delivery.
func WithDeliverer(source types.Source, dl Deliverer) Option {
	return func(d *Dispatcher) { d.deliverers[source] = dl }
}

// WithEvents sets the event bus for command lifecycle notifications.
func WithEvents(b *bus.EventBus) Option {
	return func(d *Dispatcher) { d.events = b }
}

// WithObserver installs a per-command metrics callback.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observe = o }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New assembles a Dispatcher around its providers.
func New(analyzer nlp.Provider, auto automation.Provider, store memory.Store, builder *ContextBuilder, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		nlp:        analyzer,
		automation: auto,
		store:      store,
		builder:    builder,
		deliverers: map[types.Source]Deliverer{},
		now:        time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	d.handlers = map[Intent]handlerFunc{
		IntentAutomation:    d.handleAutomation,
		IntentInformation:   d.handleInformation,
		IntentSystemControl: d.handleSystemControl,
		IntentEntertainment: d.handleEntertainment,
		IntentProductivity:  d.handleProductivity,
		IntentPersonal:      d.handlePersonal,
	}
	return d
}

// Dispatch runs one command through the pipeline and returns its response.
// It never returns an error; every failure mode maps to a response.
func (d *Dispatcher) Dispatch(ctx context.Context, msg types.CommandMessage) types.Response {
	start := d.now()
	intent := IntentUnknown
	status := "ok"

	resp := func() (resp types.Response) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("command handler panicked", "command", msg.Text, "panic", r)
				status = "panic"
				resp = d.errorResponse()
			}
		}()

		text := strings.ToLower(strings.TrimSpace(msg.Text))
		if text == "" {
			status = "empty"
			return d.fallbackResponse()
		}

		analysis, err := d.nlp.Analyze(ctx, text)
		if err != nil {
			slog.Error("command analysis failed", "command", text, "error", err)
			status = "error"
			return d.errorResponse()
		}
		intent = ParseIntent(analysis.Intent)

		ec := d.builder.Build(ctx, text)

		resp, err = d.route(ctx, text, intent, analysis, ec)
		if err != nil {
			slog.Error("command handling failed",
				"command", text, "intent", intent.String(), "error", err)
			status = "error"
			return d.errorResponse()
		}
		return resp
	}()

	if resp.Timestamp.Before(msg.Timestamp) {
		resp.Timestamp = d.now()
	}

	d.persist(ctx, msg, intent, resp)
	d.deliver(ctx, resp, msg.Source)

	if d.events != nil {
		event := bus.EventCommandProcessed
		if status != "ok" {
			event = bus.EventCommandFailed
		}
		d.events.Emit(event, resp)
	}
	if d.observe != nil {
		d.observe(intent.String(), msg.Source, status, d.now().Sub(start))
	}
	return resp
}

// route picks the intent handler, falling back to the plugin chain and the
// generic apology for unknown intents.
func (d *Dispatcher) route(ctx context.Context, command string, intent Intent, a nlp.Analysis, ec ExecutionContext) (types.Response, error) {
	if handler, ok := d.handlers[intent]; ok {
		return handler(ctx, a, ec)
	}

	if d.plugins != nil {
		resp, handled, err := d.plugins.TryPlugins(ctx, command, a.Entities)
		if err != nil {
			slog.Warn("plugin chain failed", "command", command, "error", err)
		} else if handled {
			return resp, nil
		}
	}

	return d.fallbackResponse(), nil
}

// persist appends the interaction to memory. Failures are logged, never
// propagated: losing a log entry must not fail the command.
func (d *Dispatcher) persist(ctx context.Context, msg types.CommandMessage, intent Intent, resp types.Response) {
	rec := types.InteractionRecord{
		Command:    msg.Text,
		Response:   resp.Text,
		Intent:     intent.String(),
		Source:     msg.Source,
		Confidence: resp.Confidence,
		Timestamp:  resp.Timestamp,
	}
	if err := d.store.StoreInteraction(ctx, rec); err != nil {
		slog.Error("failed to store interaction", "error", err)
	}
}

// deliver pushes the response to the source's surface. Failures are logged,
// never propagated.
func (d *Dispatcher) deliver(ctx context.Context, resp types.Response, source types.Source) {
	dl, ok := d.deliverers[source]
	if !ok {
		return
	}
	if err := dl.Deliver(ctx, resp, source); err != nil {
		slog.Error("failed to deliver response", "source", source, "error", err)
	}
}

func (d *Dispatcher) fallbackResponse() types.Response {
	return types.Response{
		Text:       fallbackText,
		Confidence: fallbackConfidence,
		Timestamp:  d.now(),
	}
}

func (d *Dispatcher) errorResponse() types.Response {
	return types.Response{
		Text:       errorText,
		Confidence: 0,
		Timestamp:  d.now(),
	}
}
