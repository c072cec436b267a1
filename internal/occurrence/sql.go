package occurrence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSource reads occurrence tables from a SQLite database.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at dsn.
func OpenSQLite(dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: exec busy_timeout")
	}
	return &SQLiteSource{db: db}, nil
}

// NewSQLiteSource wraps an existing handle.
func NewSQLiteSource(db *sql.DB) *SQLiteSource {
	return &SQLiteSource{db: db}
}

// Close closes the database handle.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Query runs query and returns the result as a header plus string rows.
// NULL values become empty strings.
func (s *SQLiteSource) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: query records")
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: read columns")
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, eris.Wrap(err, "sqlite: scan record row")
		}
		out = append(out, stringify(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: iterate record rows")
	}
	return header, out, nil
}

func stringify(vals []any) []string {
	row := make([]string, len(vals))
	for i, v := range vals {
		switch t := v.(type) {
		case nil:
			row[i] = ""
		case []byte:
			row[i] = string(t)
		case string:
			row[i] = t
		default:
			row[i] = fmt.Sprint(t)
		}
	}
	return row
}
