package cleaner

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

// ValueMode selects what a run hands back.
type ValueMode int

// Value modes.
const (
	// ValueFlagged returns the flag matrix and summary.
	ValueFlagged ValueMode = iota
	// ValueClean also returns the records whose summary is true.
	ValueClean
)

// ErrUnknownValueMode is returned for a value mode other than flagged or clean.
var ErrUnknownValueMode = errors.New("cleaner: unknown value mode")

// ParseValueMode parses "flagged" or "clean".
func ParseValueMode(s string) (ValueMode, error) {
	switch strings.ToLower(s) {
	case "flagged", "":
		return ValueFlagged, nil
	case "clean":
		return ValueClean, nil
	}
	return 0, eris.Wrapf(ErrUnknownValueMode, "cleaner: value %q", s)
}

func (v ValueMode) String() string {
	if v == ValueClean {
		return "clean"
	}
	return "flagged"
}

// Plan is an ordered list of configured tests.
type Plan struct {
	Tests []Test
	Value ValueMode
	// Concurrency bounds how many tests run at once. Values below 2 run
	// the tests one after another.
	Concurrency int
}

// Kinds returns the planned test kinds in order.
func (p Plan) Kinds() []Kind {
	out := make([]Kind, len(p.Tests))
	for i, t := range p.Tests {
		out[i] = t.Kind()
	}
	return out
}

// Applicable splits the planned tests into those whose required inputs are
// all in avail and the kinds that must be skipped.
func (p Plan) Applicable(avail RefSet) (run []Test, skipped []Kind) {
	for _, t := range p.Tests {
		if avail.Has(t.Requires()) {
			run = append(run, t)
		} else {
			skipped = append(skipped, t.Kind())
		}
	}
	return run, skipped
}

// Advice collects the configuration warnings of the given tests.
func Advice(tests []Test) []string {
	var out []string
	for _, t := range tests {
		if a, ok := t.(Advisor); ok {
			out = append(out, a.Advice()...)
		}
	}
	return out
}

// DefaultPlan builds a plan of stock-parameter tests for the given kinds.
func DefaultPlan(kinds ...Kind) Plan {
	p := Plan{Tests: make([]Test, len(kinds)), Concurrency: 1}
	for i, k := range kinds {
		p.Tests[i] = DefaultTest(k)
	}
	return p
}
