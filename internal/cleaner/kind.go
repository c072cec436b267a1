package cleaner

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

// Kind identifies one coordinate test.
type Kind int

// Test kinds. The string form is the column name in results.
const (
	KindValidity Kind = iota
	KindEqual
	KindZeros
	KindCapitals
	KindCentroids
	KindSeas
	KindUrban
	KindCountries
	KindOutliers
	KindGBIF
	KindInstitutions
	KindRange
	KindDuplicates
)

var kindNames = [...]string{
	KindValidity:     "validity",
	KindEqual:        "equal",
	KindZeros:        "zeros",
	KindCapitals:     "capitals",
	KindCentroids:    "centroids",
	KindSeas:         "seas",
	KindUrban:        "urban",
	KindCountries:    "countries",
	KindOutliers:     "outliers",
	KindGBIF:         "gbif",
	KindInstitutions: "institutions",
	KindRange:        "range",
	KindDuplicates:   "duplicates",
}

// ErrUnknownTest is returned for a test name outside the fixed set.
var ErrUnknownTest = errors.New("cleaner: unknown test")

// Kinds returns every test kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind parses a test name. "gbif-default-point" is accepted for gbif.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "gbif-default-point" {
		return KindGBIF, nil
	}
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, eris.Wrapf(ErrUnknownTest, "cleaner: test %q", s)
}

// ParseKinds parses a list of test names, dropping repeats.
func ParseKinds(names []string) ([]Kind, error) {
	seen := make(map[Kind]bool, len(names))
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		k, err := ParseKind(n)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
