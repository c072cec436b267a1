// Package cleaner runs a plan of coordinate tests over a record set and
// reduces the per-test pass masks into one summary mask.
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coordclean/internal/checks"
	"github.com/sells-group/coordclean/internal/occurrence"
	"github.com/sells-group/coordclean/internal/reference"
)

// ErrInvalidCoordinates is wrapped by InvalidCoordinatesError.
var ErrInvalidCoordinates = errors.New("cleaner: invalid coordinates")

// InvalidCoordinatesError aborts a run when any record has a missing or
// out-of-range coordinate.
type InvalidCoordinatesError struct {
	Indices []int
}

func (e *InvalidCoordinatesError) Error() string {
	return fmt.Sprintf("cleaner: invalid coordinates in %d records, clean dataset before proceeding", len(e.Indices))
}

func (e *InvalidCoordinatesError) Unwrap() error { return ErrInvalidCoordinates }

// Column is one test's pass mask.
type Column struct {
	Kind Kind   `json:"test"`
	Pass []bool `json:"pass"`
}

// Result is the outcome of one run.
type Result struct {
	RunID   string   `json:"run_id"`
	Records int      `json:"records"`
	Columns []Column `json:"columns"`
	Summary []bool   `json:"summary"`
	// Clean is set by Apply in clean mode.
	Clean    *occurrence.Dataset `json:"-"`
	Skipped  []Kind              `json:"skipped"`
	Warnings []string            `json:"warnings"`
}

// Flagged counts the records whose summary is false.
func (r *Result) Flagged() int {
	n := 0
	for _, ok := range r.Summary {
		if !ok {
			n++
		}
	}
	return n
}

// Column returns the mask for k, if it was computed.
func (r *Result) Column(k Kind) ([]bool, bool) {
	for _, c := range r.Columns {
		if c.Kind == k {
			return c.Pass, true
		}
	}
	return nil, false
}

// Summarize ANDs the columns per record. With no columns every record passes.
func Summarize(n int, columns []Column) []bool {
	summary := make([]bool, n)
	for i := range summary {
		summary[i] = true
		for _, c := range columns {
			if !c.Pass[i] {
				summary[i] = false
				break
			}
		}
	}
	return summary
}

// Run validates every coordinate, then runs the applicable tests of the plan
// and summarizes them. Tests whose inputs are missing are skipped.
func Run(ctx context.Context, plan Plan, in *Input) (*Result, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := in.Len()

	if bad := failing(checks.Validity(in.Lon, in.Lat)); len(bad) > 0 {
		return nil, &InvalidCoordinatesError{Indices: bad}
	}

	res := &Result{RunID: uuid.NewString(), Records: n}
	log := zap.L().With(zap.String("run_id", res.RunID))

	tests, skipped := plan.Applicable(in.Available())
	res.Skipped = skipped
	for _, k := range skipped {
		log.Debug("skipping test, reference not available", zap.String("test", k.String()))
	}

	res.Warnings = Advice(tests)
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	columns := make([]Column, len(tests))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(plan.Concurrency, 1))
	for i, t := range tests {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			testStart := time.Now()
			pass, err := t.Run(gCtx, in)
			if err != nil {
				return eris.Wrapf(err, "cleaner: run %s", t.Kind())
			}
			if len(pass) != n {
				return eris.Errorf("cleaner: %s returned %d values for %d records", t.Kind(), len(pass), n)
			}
			columns[i] = Column{Kind: t.Kind(), Pass: pass}
			log.Debug("test complete",
				zap.String("test", t.Kind().String()),
				zap.Int("failed", n-countTrue(pass)),
				zap.Duration("elapsed", time.Since(testStart)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Columns = columns
	res.Summary = Summarize(n, columns)

	log.Info("cleaning run complete",
		zap.Int("records", n),
		zap.Int("tests", len(columns)),
		zap.Int("skipped", len(skipped)),
		zap.Int("flagged", res.Flagged()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// Apply runs the plan over a dataset. In clean mode the result carries the
// subset of records that passed every test.
func Apply(ctx context.Context, plan Plan, ds *occurrence.Dataset, refs *reference.Set) (*Result, error) {
	res, err := Run(ctx, plan, InputFromDataset(ds, refs))
	if err != nil {
		return nil, err
	}
	if plan.Value == ValueClean {
		res.Clean = ds.Subset(res.Summary)
	}
	return res, nil
}

func failing(mask []bool) []int {
	var out []int
	for i, ok := range mask {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}

func countTrue(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
