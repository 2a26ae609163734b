package configsource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource fetches the current configuration document from a
// single-row table, where the platform's control plane writes the
// latest published snapshot as one JSON blob per environment.
type PostgresSource struct {
	pool          *pgxpool.Pool
	environmentID string
}

// NewPostgresSource opens a Postgres connection pool against dsn.
func NewPostgresSource(ctx context.Context, dsn, environmentID string) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("configsource: connect to postgres: %w", err)
	}
	return &PostgresSource{pool: pool, environmentID: environmentID}, nil
}

// Fetch implements Source.
func (s *PostgresSource) Fetch(ctx context.Context) ([]byte, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM published_configurations WHERE environment_id = $1 ORDER BY published_at DESC LIMIT 1`,
		s.environmentID,
	).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("configsource: query published configuration: %w", err)
	}
	return doc, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}
