package occurrence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Querier is the subset of a pgx pool used to read occurrence tables.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads occurrence tables from Postgres.
type PostgresSource struct {
	pool Querier
}

// NewPostgresSource wraps a pgx pool (or pgxmock in tests).
func NewPostgresSource(pool Querier) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Query runs query and returns the result as a header plus string rows.
func (s *PostgresSource) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: query records")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}

	var out [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan record row")
		}
		out = append(out, stringify(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "postgres: iterate record rows")
	}
	return header, out, nil
}
