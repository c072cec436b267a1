package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/occurrence"
)

const defaultQuery = "SELECT * FROM occurrences"

// detectFormat infers the input format from a path or DSN.
func detectFormat(input string) string {
	if strings.HasPrefix(input, "postgres://") || strings.HasPrefix(input, "postgresql://") {
		return "postgres"
	}
	switch strings.ToLower(filepath.Ext(input)) {
	case ".xlsx":
		return "xlsx"
	case ".db", ".sqlite", ".sqlite3":
		return "sqlite"
	}
	return "csv"
}

// readTable loads the raw occurrence table from the configured source.
func readTable(ctx context.Context, input, format, query string) ([]string, [][]string, error) {
	if format == "" {
		format = detectFormat(input)
	}
	if query == "" {
		query = defaultQuery
	}

	switch format {
	case "csv":
		opts := cfg.CSVOptions()
		if strings.EqualFold(filepath.Ext(input), ".tsv") && cfg.Input.Delimiter == "," {
			opts.Delimiter = '\t'
		}
		return occurrence.ReadCSVFile(ctx, input, opts)
	case "xlsx":
		return occurrence.ReadXLSX(input, occurrence.XLSXOptions{SheetName: cfg.Input.Sheet})
	case "sqlite":
		src, err := occurrence.OpenSQLite(input)
		if err != nil {
			return nil, nil, err
		}
		defer src.Close()
		return src.Query(ctx, query)
	case "postgres":
		dsn := input
		if dsn == "" {
			dsn = cfg.Input.DatabaseURL
		}
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, eris.Wrap(err, "postgres: connect")
		}
		defer pool.Close()
		return occurrence.NewPostgresSource(pool).Query(ctx, query)
	default:
		return nil, nil, eris.Errorf("unknown input format %q", format)
	}
}

// loadDataset reads and parses the occurrence records.
func loadDataset(ctx context.Context, input, format, query string) (*occurrence.Dataset, error) {
	header, rows, err := readTable(ctx, input, format, query)
	if err != nil {
		return nil, err
	}
	ds, err := occurrence.FromTable(header, rows, cfg.Columns())
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded occurrences",
		zap.String("input", redactDSN(input)),
		zap.Int("records", ds.Len()),
		zap.Bool("country_column", ds.HasCountry),
	)
	return ds, nil
}

// redactDSN hides credentials in a database URL.
func redactDSN(s string) string {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return s
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return s
}
