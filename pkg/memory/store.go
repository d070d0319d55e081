// Package memory defines the interfaces for the assistant's persistence
// layer: the append-only interaction log, user preferences, and optional
// semantic recall over past interactions.
//
// Implementations must be safe for concurrent use.
package memory

import (
	"context"

	"github.com/asterbyte/jarvis/pkg/types"
)

// Store is the abstraction over any interaction-memory backend.
type Store interface {
	// StoreInteraction appends one completed exchange to the interaction log.
	// Records are never mutated after the fact.
	StoreInteraction(ctx context.Context, rec types.InteractionRecord) error

	// RecentInteractions returns up to n most recent records, newest first.
	RecentInteractions(ctx context.Context, n int) ([]types.InteractionRecord, error)

	// UserPreferences returns the stored preference map. Never nil.
	UserPreferences(ctx context.Context) (map[string]string, error)

	// SetPreference stores or replaces one preference value.
	SetPreference(ctx context.Context, key, value string) error

	// CleanupOldData removes records older than the backend's retention
	// window. Called periodically by the background monitor loop.
	CleanupOldData(ctx context.Context) error

	// HealthCheck reports whether the backend is currently reachable.
	HealthCheck(ctx context.Context) error
}

// ScoredInteraction is an interaction record with its semantic distance to a
// query (smaller is more similar).
type ScoredInteraction struct {
	Record   types.InteractionRecord
	Distance float64
}

// SemanticRecaller is an optional extension implemented by stores that index
// interactions by embedding vector. The dispatcher uses it, when available,
// to surface semantically similar past exchanges in the execution context.
type SemanticRecaller interface {
	// SimilarInteractions returns up to topK past interactions closest to the
	// query embedding, most similar first.
	SimilarInteractions(ctx context.Context, embedding []float32, topK int) ([]ScoredInteraction, error)
}
