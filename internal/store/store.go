// Package store persists postings in PostgreSQL. Uniqueness on the posting
// fingerprint is enforced by the schema itself, so concurrent or repeated
// inserts of the same content resolve silently instead of racing an
// application-level existence check.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Outcome reports how an idempotent insert resolved.
type Outcome int

const (
	// Inserted means a new row was written.
	Inserted Outcome = iota
	// AlreadyExists means a row with the same fingerprint was present; the
	// insert was a no-op.
	AlreadyExists
)

func (o Outcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "already_exists"
}

// Store wraps a pgx connection pool for the raw and qualified posting
// tables.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to the database and verifies connectivity. An unreachable
// database is fatal to any run, so this fails fast.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
