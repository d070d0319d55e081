package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createInteractionsTable = `
CREATE TABLE IF NOT EXISTS interactions (
    id         BIGSERIAL PRIMARY KEY,
    command    TEXT NOT NULL,
    response   TEXT NOT NULL,
    intent     TEXT NOT NULL DEFAULT '',
    source     TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
    timestamp  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS interactions_timestamp_idx
    ON interactions (timestamp DESC);
`

const createPreferencesTable = `
CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// vectorColumnDDL adds the embedding column and its HNSW index. The column
// dimensionality is fixed at migration time and must match the embeddings
// provider in use.
const vectorColumnDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

ALTER TABLE interactions
    ADD COLUMN IF NOT EXISTS embedding vector(%d);

CREATE INDEX IF NOT EXISTS interactions_embedding_idx
    ON interactions USING hnsw (embedding vector_cosine_ops);
`

// Migrate creates the interaction log and preference tables if they do not
// exist. When dims > 0 it also installs the pgvector extension and adds the
// embedding column with a cosine HNSW index. Safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dims int) error {
	if _, err := pool.Exec(ctx, createInteractionsTable); err != nil {
		return fmt.Errorf("create interactions table: %w", err)
	}
	if _, err := pool.Exec(ctx, createPreferencesTable); err != nil {
		return fmt.Errorf("create preferences table: %w", err)
	}
	if dims > 0 {
		if _, err := pool.Exec(ctx, fmt.Sprintf(vectorColumnDDL, dims)); err != nil {
			return fmt.Errorf("create embedding column: %w", err)
		}
	}
	return nil
}
