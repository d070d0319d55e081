package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/asterbyte/jarvis/pkg/memory"
	"github.com/asterbyte/jarvis/pkg/provider/automation"
	"github.com/asterbyte/jarvis/pkg/provider/embeddings"
	"github.com/asterbyte/jarvis/pkg/types"
)

const (
	historyDepth = 5
	similarTopK  = 3
)

// ExecutionContext carries the situational data handlers consult when
// serving a command: time, recent history, preferences, machine state, and
// optionally semantically similar past exchanges.
type ExecutionContext struct {
	Now          time.Time
	Location     string
	History      []types.InteractionRecord
	Preferences  map[string]string
	SystemStatus map[string]any
	ActiveApps   []string
	Similar      []memory.ScoredInteraction
}

// ContextBuilder assembles an [ExecutionContext] for each command. Every
// lookup degrades gracefully: a failing backend costs that field, never the
// command.
type ContextBuilder struct {
	store      memory.Store
	automation automation.Provider
	embedder   embeddings.Provider
	recaller   memory.SemanticRecaller
	status     func() map[string]any
	location   string
	now        func() time.Time
}

// BuilderOption is a functional option for configuring a ContextBuilder.
type BuilderOption func(*ContextBuilder)

// WithSemanticRecall enables similar-interaction lookup. Both the embedder
// (to vectorize the command) and the recaller (to search) are required.
func WithSemanticRecall(e embeddings.Provider, r memory.SemanticRecaller) BuilderOption {
	return func(b *ContextBuilder) {
		b.embedder = e
		b.recaller = r
	}
}

// WithSystemStatus installs a machine-state snapshot function.
func WithSystemStatus(fn func() map[string]any) BuilderOption {
	return func(b *ContextBuilder) { b.status = fn }
}

// WithLocation sets the configured user location.
func WithLocation(loc string) BuilderOption {
	return func(b *ContextBuilder) { b.location = loc }
}

// WithBuilderClock overrides the time source. Used by tests.
func WithBuilderClock(now func() time.Time) BuilderOption {
	return func(b *ContextBuilder) { b.now = now }
}

// NewContextBuilder returns a builder backed by the given store and
// automation provider.
func NewContextBuilder(store memory.Store, auto automation.Provider, opts ...BuilderOption) *ContextBuilder {
	b := &ContextBuilder{
		store:      store,
		automation: auto,
		now:        time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build assembles the execution context for command.
func (b *ContextBuilder) Build(ctx context.Context, command string) ExecutionContext {
	ec := ExecutionContext{
		Now:          b.now(),
		Location:     b.location,
		Preferences:  map[string]string{},
		SystemStatus: map[string]any{},
	}

	if history, err := b.store.RecentInteractions(ctx, historyDepth); err != nil {
		slog.Warn("context: recent interactions unavailable", "error", err)
	} else {
		ec.History = history
	}

	if prefs, err := b.store.UserPreferences(ctx); err != nil {
		slog.Warn("context: user preferences unavailable", "error", err)
	} else {
		ec.Preferences = prefs
	}

	if apps, err := b.automation.ActiveApps(ctx); err != nil {
		slog.Warn("context: active applications unavailable", "error", err)
	} else {
		ec.ActiveApps = apps
	}

	if b.status != nil {
		ec.SystemStatus = b.status()
	}

	if b.embedder != nil && b.recaller != nil {
		ec.Similar = b.similar(ctx, command)
	}

	return ec
}

// similar vectorizes the command and looks up the closest past interactions.
func (b *ContextBuilder) similar(ctx context.Context, command string) []memory.ScoredInteraction {
	vec, err := b.embedder.Embed(ctx, command)
	if err != nil {
		slog.Warn("context: command embedding failed", "error", err)
		return nil
	}
	sim, err := b.recaller.SimilarInteractions(ctx, vec, similarTopK)
	if err != nil {
		slog.Warn("context: semantic recall failed", "error", err)
		return nil
	}
	return sim
}
