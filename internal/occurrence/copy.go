package occurrence

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Copier is the subset of a pgx pool used to write result tables.
type Copier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyToPostgres creates table (text columns named after header) if it does
// not exist and bulk-inserts rows with the COPY protocol. table may be
// schema-qualified ("schema.table").
func CopyToPostgres(ctx context.Context, pool Copier, table string, header []string, rows [][]string) (int64, error) {
	if len(header) == 0 {
		return 0, eris.New("postgres: copy requires a header")
	}
	ident := pgx.Identifier(strings.Split(table, "."))

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = pgx.Identifier{h}.Sanitize() + " text"
	}
	ddl := "CREATE TABLE IF NOT EXISTS " + ident.Sanitize() + " (" + strings.Join(cols, ", ") + ")"
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return 0, eris.Wrapf(err, "postgres: create table %s", table)
	}

	if len(rows) == 0 {
		return 0, nil
	}
	src := make([][]any, len(rows))
	for i, row := range rows {
		vals := make([]any, len(header))
		for j := range header {
			if j < len(row) {
				vals[j] = row[j]
			}
		}
		src[i] = vals
	}

	n, err := pool.CopyFrom(ctx, ident, header, pgx.CopyFromRows(src))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: COPY INTO %s", table)
	}
	return n, nil
}
