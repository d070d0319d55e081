// Package mock provides a test double for the memory package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/asterbyte/jarvis/pkg/memory"
	"github.com/asterbyte/jarvis/pkg/types"
)

// Store is a mock implementation of memory.Store and memory.SemanticRecaller.
type Store struct {
	mu sync.Mutex

	// Stored accumulates every record passed to StoreInteraction.
	Stored []types.InteractionRecord

	// Recent is returned by RecentInteractions (truncated to n).
	Recent []types.InteractionRecord

	// Prefs is returned by UserPreferences and mutated by SetPreference.
	Prefs map[string]string

	// Similar is returned by SimilarInteractions (truncated to topK).
	Similar []memory.ScoredInteraction

	// StoreErr, RecentErr, PrefsErr, CleanupErr, HealthErr and SimilarErr
	// force the corresponding method to fail.
	StoreErr   error
	RecentErr  error
	PrefsErr   error
	CleanupErr error
	HealthErr  error
	SimilarErr error

	// CleanupCalls counts CleanupOldData invocations.
	CleanupCalls int
}

// StoreInteraction records rec and returns StoreErr.
func (s *Store) StoreInteraction(_ context.Context, rec types.InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StoreErr != nil {
		return s.StoreErr
	}
	s.Stored = append(s.Stored, rec)
	return nil
}

// RecentInteractions returns up to n entries of Recent.
func (s *Store) RecentInteractions(_ context.Context, n int) ([]types.InteractionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecentErr != nil {
		return nil, s.RecentErr
	}
	out := s.Recent
	if n < len(out) {
		out = out[:n]
	}
	cp := make([]types.InteractionRecord, len(out))
	copy(cp, out)
	return cp, nil
}

// UserPreferences returns a copy of Prefs. Never nil.
func (s *Store) UserPreferences(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PrefsErr != nil {
		return nil, s.PrefsErr
	}
	out := make(map[string]string, len(s.Prefs))
	for k, v := range s.Prefs {
		out[k] = v
	}
	return out, nil
}

// SetPreference stores the value in Prefs.
func (s *Store) SetPreference(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Prefs == nil {
		s.Prefs = map[string]string{}
	}
	s.Prefs[key] = value
	return nil
}

// CleanupOldData counts the call and returns CleanupErr.
func (s *Store) CleanupOldData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CleanupCalls++
	return s.CleanupErr
}

// HealthCheck returns HealthErr.
func (s *Store) HealthCheck(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.HealthErr
}

// SimilarInteractions returns up to topK entries of Similar.
func (s *Store) SimilarInteractions(_ context.Context, _ []float32, topK int) ([]memory.ScoredInteraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SimilarErr != nil {
		return nil, s.SimilarErr
	}
	out := s.Similar
	if topK < len(out) {
		out = out[:topK]
	}
	cp := make([]memory.ScoredInteraction, len(out))
	copy(cp, out)
	return cp, nil
}

// CleanupCount returns the number of CleanupOldData calls. Thread-safe.
func (s *Store) CleanupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CleanupCalls
}

// StoredCount returns the number of stored records. Thread-safe.
func (s *Store) StoredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Stored)
}

// Reset clears all recorded state. Thread-safe.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stored = nil
	s.CleanupCalls = 0
}

// Ensure Store implements the memory interfaces at compile time.
var (
	_ memory.Store            = (*Store)(nil)
	_ memory.SemanticRecaller = (*Store)(nil)
)
