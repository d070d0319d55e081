// Package postgres provides a PostgreSQL-backed implementation of
// memory.Store with optional pgvector semantic recall over the interaction
// log.
//
// The pgvector extension must be available in the target database when an
// embeddings provider is configured; [Migrate] installs it automatically via
// CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn,
//	    postgres.WithEmbeddings(embProvider, 1536),
//	    postgres.WithRetention(90*24*time.Hour),
//	)
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/asterbyte/jarvis/pkg/memory"
	"github.com/asterbyte/jarvis/pkg/provider/embeddings"
	"github.com/asterbyte/jarvis/pkg/types"
)

// Compile-time interface checks.
var (
	_ memory.Store            = (*Store)(nil)
	_ memory.SemanticRecaller = (*Store)(nil)
)

const defaultRetention = 90 * 24 * time.Hour

// Store is a PostgreSQL-backed interaction memory. All operations are safe
// for concurrent use.
type Store struct {
	pool      *pgxpool.Pool
	embedder  embeddings.Provider // nil disables semantic indexing
	dims      int
	retention time.Duration
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithEmbeddings enables semantic indexing of interactions. dims must match
// the provider's vector dimensionality and is baked into the schema on first
// migration.
func WithEmbeddings(p embeddings.Provider, dims int) Option {
	return func(s *Store) {
		s.embedder = p
		s.dims = dims
	}
}

// WithRetention sets the age past which CleanupOldData deletes interactions.
// Defaults to 90 days.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection when
// embeddings are enabled, and runs [Migrate] to ensure all required tables
// exist.
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{retention: defaultRetention}
	for _, o := range opts {
		o(s)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	if s.embedder != nil {
		// Register pgvector types on every new connection so the embedding
		// column can be scanned into and inserted from pgvector.Vector values.
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, s.dims); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	s.pool = pool
	return s, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// StoreInteraction appends one exchange to the interactions table. When
// embeddings are enabled the command text is embedded and indexed alongside;
// an embedding failure is logged and the record is stored without a vector.
func (s *Store) StoreInteraction(ctx context.Context, rec types.InteractionRecord) error {
	var vec *pgvector.Vector
	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, rec.Command)
		if err != nil {
			slog.Warn("postgres store: embedding failed, storing without vector", "error", err)
		} else {
			v := pgvector.NewVector(emb)
			vec = &v
		}
	}

	const q = `
		INSERT INTO interactions
		    (command, response, intent, source, confidence, embedding, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		rec.Command,
		rec.Response,
		rec.Intent,
		string(rec.Source),
		rec.Confidence,
		vec,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres store: store interaction: %w", err)
	}
	return nil
}

// RecentInteractions returns up to n records, newest first.
func (s *Store) RecentInteractions(ctx context.Context, n int) ([]types.InteractionRecord, error) {
	const q = `
		SELECT command, response, intent, source, confidence, timestamp
		FROM   interactions
		ORDER  BY timestamp DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("postgres store: recent interactions: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanInteraction)
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if records == nil {
		records = []types.InteractionRecord{}
	}
	return records, nil
}

// UserPreferences returns the full preference map. Never nil.
func (s *Store) UserPreferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: user preferences: %w", err)
	}
	defer rows.Close()

	prefs := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("postgres store: scan preference: %w", err)
		}
		prefs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: preference rows: %w", err)
	}
	return prefs, nil
}

// SetPreference upserts one preference value.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO preferences (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
		    value      = EXCLUDED.value,
		    updated_at = now()`

	if _, err := s.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("postgres store: set preference: %w", err)
	}
	return nil
}

// CleanupOldData deletes interactions older than the retention window.
func (s *Store) CleanupOldData(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)
	tag, err := s.pool.Exec(ctx, `DELETE FROM interactions WHERE timestamp < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("postgres store: cleanup: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info("cleaned up old interactions", "deleted", n, "cutoff", cutoff)
	}
	return nil
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// SimilarInteractions implements memory.SemanticRecaller using cosine
// distance over the pgvector HNSW index. Returns an empty slice when
// embeddings are disabled.
func (s *Store) SimilarInteractions(ctx context.Context, embedding []float32, topK int) ([]memory.ScoredInteraction, error) {
	if s.embedder == nil {
		return []memory.ScoredInteraction{}, nil
	}

	const q = `
		SELECT command, response, intent, source, confidence, timestamp,
		       embedding <=> $1 AS distance
		FROM   interactions
		WHERE  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres store: similar interactions: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.ScoredInteraction, error) {
		var (
			si  memory.ScoredInteraction
			src string
		)
		if err := row.Scan(
			&si.Record.Command,
			&si.Record.Response,
			&si.Record.Intent,
			&src,
			&si.Record.Confidence,
			&si.Record.Timestamp,
			&si.Distance,
		); err != nil {
			return memory.ScoredInteraction{}, err
		}
		si.Record.Source = types.Source(src)
		return si, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan similar rows: %w", err)
	}
	if results == nil {
		results = []memory.ScoredInteraction{}
	}
	return results, nil
}

// scanInteraction maps one interactions row to a record.
func scanInteraction(row pgx.CollectableRow) (types.InteractionRecord, error) {
	var (
		rec types.InteractionRecord
		src string
	)
	if err := row.Scan(
		&rec.Command,
		&rec.Response,
		&rec.Intent,
		&src,
		&rec.Confidence,
		&rec.Timestamp,
	); err != nil {
		return types.InteractionRecord{}, err
	}
	rec.Source = types.Source(src)
	return rec, nil
}
