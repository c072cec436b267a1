package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/cleaner"
	"github.com/sells-group/coordclean/internal/occurrence"
	"github.com/sells-group/coordclean/internal/reference"
)

var (
	cleanInput  string
	cleanFormat string
	cleanQuery  string
	cleanTests  string
	cleanValue  string
	cleanOutput string
	cleanReport string
	cleanTable  string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run coordinate tests over an occurrence table",
	Long:  "Reads occurrence records from CSV, XLSX, SQLite or Postgres, runs the requested tests and writes the flagged table or the clean subset.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("clean"); err != nil {
			return err
		}

		tests := cfg.Clean.Tests
		if cleanTests != "" {
			tests = strings.Split(cleanTests, ",")
		}
		value := cfg.Clean.Value
		if cleanValue != "" {
			value = cleanValue
		}
		plan, err := cfg.PlanFor(tests, value)
		if err != nil {
			return eris.Wrap(err, "clean: build plan")
		}

		if cleanInput == "" && cleanFormat != "postgres" {
			return eris.New("clean: --input is required")
		}
		query := cleanQuery
		if query == "" {
			query = cfg.Input.Query
		}

		ds, err := loadDataset(ctx, cleanInput, cleanFormat, query)
		if err != nil {
			return eris.Wrap(err, "clean: load records")
		}

		refs, err := reference.Load(ctx, cfg.References)
		if err != nil {
			return eris.Wrap(err, "clean: load references")
		}

		res, err := cleaner.Apply(ctx, plan, ds, refs)
		if err != nil {
			var invalid *cleaner.InvalidCoordinatesError
			if errors.As(err, &invalid) {
				zap.L().Error("invalid coordinates", zap.Ints("records", head(invalid.Indices, 20)))
			}
			return eris.Wrap(err, "clean: run")
		}

		header, rows := resultTable(ds, res, plan.Value)
		if cleanTable != "" {
			if err := copyResult(ctx, header, rows); err != nil {
				return err
			}
		} else if err := writeCSV(cmd.OutOrStdout(), header, rows); err != nil {
			return err
		}

		if cleanReport != "" {
			if err := writeReport(cleanReport, res); err != nil {
				return err
			}
		}

		zap.L().Info("clean complete",
			zap.String("run_id", res.RunID),
			zap.Int("records", res.Records),
			zap.Int("flagged", res.Flagged()),
			zap.Int("skipped_tests", len(res.Skipped)),
		)
		return nil
	},
}

// resultTable returns the clean subset, or the input table with one pass
// column per test and a summary column.
func resultTable(ds *occurrence.Dataset, res *cleaner.Result, mode cleaner.ValueMode) ([]string, [][]string) {
	if mode == cleaner.ValueClean {
		return res.Clean.Table()
	}

	header, rows := ds.Table()
	outHeader := append([]string(nil), header...)
	for _, c := range res.Columns {
		outHeader = append(outHeader, "."+c.Kind.String())
	}
	outHeader = append(outHeader, ".summary")

	outRows := make([][]string, len(rows))
	for i, row := range rows {
		r := make([]string, len(header), len(outHeader))
		copy(r, row)
		for _, c := range res.Columns {
			r = append(r, strconv.FormatBool(c.Pass[i]))
		}
		outRows[i] = append(r, strconv.FormatBool(res.Summary[i]))
	}
	return outHeader, outRows
}

func writeCSV(stdout io.Writer, header []string, rows [][]string) (err error) {
	if cleanOutput == "" || cleanOutput == "-" {
		return occurrence.WriteCSV(stdout, header, rows)
	}

	f, err := os.Create(cleanOutput)
	if err != nil {
		return eris.Wrap(err, "clean: create output")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "clean: close output")
		}
	}()
	return occurrence.WriteCSV(f, header, rows)
}

// copyResult writes the result table to Postgres.
func copyResult(ctx context.Context, header []string, rows [][]string) error {
	dsn := cfg.Input.DatabaseURL
	if detectFormat(cleanInput) == "postgres" {
		dsn = cleanInput
	}
	if dsn == "" {
		return eris.New("clean: --output-table needs a postgres input or input.database_url")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return eris.Wrap(err, "clean: connect postgres")
	}
	defer pool.Close()

	n, err := occurrence.CopyToPostgres(ctx, pool, cleanTable, header, rows)
	if err != nil {
		return err
	}
	zap.L().Info("wrote result table", zap.String("table", cleanTable), zap.Int64("rows", n))
	return nil
}

func writeReport(path string, res *cleaner.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return eris.Wrap(err, "clean: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "clean: write report")
	}
	return nil
}

func head(xs []int, n int) []int {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func init() {
	cleanCmd.Flags().StringVar(&cleanInput, "input", "", "occurrence table: CSV/TSV, XLSX, SQLite file or postgres:// URL")
	cleanCmd.Flags().StringVar(&cleanFormat, "format", "", "input format: csv, xlsx, sqlite or postgres (default from extension)")
	cleanCmd.Flags().StringVar(&cleanQuery, "query", "", "SQL query for database inputs (default: "+defaultQuery+")")
	cleanCmd.Flags().StringVar(&cleanTests, "tests", "", "comma-separated tests to run (default from config)")
	cleanCmd.Flags().StringVar(&cleanValue, "value", "", "output mode: flagged or clean (default from config)")
	cleanCmd.Flags().StringVar(&cleanOutput, "output", "-", "output CSV path, - for stdout")
	cleanCmd.Flags().StringVar(&cleanReport, "report", "", "write the JSON run report to this path")
	cleanCmd.Flags().StringVar(&cleanTable, "output-table", "", "write the result to this Postgres table instead of CSV")
	rootCmd.AddCommand(cleanCmd)
}
