// Package memstore provides an in-memory implementation of memory.Store.
// It is the default backend for development and tests: interactions live in a
// bounded ring that evicts the oldest records, and nothing survives a restart.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/asterbyte/jarvis/pkg/memory"
	"github.com/asterbyte/jarvis/pkg/types"
)

// Compile-time assertion that Store satisfies memory.Store.
var _ memory.Store = (*Store)(nil)

const (
	defaultMaxRecords = 1000
	defaultRetention  = 30 * 24 * time.Hour
)

// Store implements memory.Store entirely in process memory.
type Store struct {
	mu         sync.Mutex
	records    []types.InteractionRecord // oldest first
	prefs      map[string]string
	maxRecords int
	retention  time.Duration
	now        func() time.Time
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithMaxRecords bounds the interaction ring. Defaults to 1000.
func WithMaxRecords(n int) Option {
	return func(s *Store) { s.maxRecords = n }
}

// WithRetention sets the age past which CleanupOldData evicts records.
// Defaults to 30 days.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		prefs:      map[string]string{},
		maxRecords: defaultMaxRecords,
		retention:  defaultRetention,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StoreInteraction appends rec, evicting the oldest record when full.
func (s *Store) StoreInteraction(_ context.Context, rec types.InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if s.maxRecords > 0 && len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
	return nil
}

// RecentInteractions returns up to n records, newest first.
func (s *Store) RecentInteractions(_ context.Context, n int) ([]types.InteractionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.records) == 0 {
		return []types.InteractionRecord{}, nil
	}
	if n > len(s.records) {
		n = len(s.records)
	}
	out := make([]types.InteractionRecord, n)
	for i := 0; i < n; i++ {
		out[i] = s.records[len(s.records)-1-i]
	}
	return out, nil
}

// UserPreferences returns a copy of the preference map.
func (s *Store) UserPreferences(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.prefs))
	for k, v := range s.prefs {
		out[k] = v
	}
	return out, nil
}

// SetPreference stores or replaces one preference value.
func (s *Store) SetPreference(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key] = value
	return nil
}

// CleanupOldData drops records older than the retention window.
func (s *Store) CleanupOldData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.retention)
	firstKept := len(s.records)
	for i, rec := range s.records {
		if rec.Timestamp.After(cutoff) {
			firstKept = i
			break
		}
	}
	s.records = s.records[firstKept:]
	return nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(_ context.Context) error { return nil }

// Len returns the number of stored records. Used by tests and monitoring.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
