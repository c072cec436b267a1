// Package checks implements the per-record coordinate tests. Every test is a
// pure function over parallel coordinate slices and returns a pass mask:
// true means the record passed.
package checks

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Validity fails records with a missing coordinate or one outside
// [-180, 180] x [-90, 90].
func Validity(lon, lat []float64) []bool {
	out := make([]bool, len(lon))
	for i := range lon {
		out[i] = !(math.IsNaN(lon[i]) || math.IsNaN(lat[i]) ||
			lon[i] < -180 || lon[i] > 180 || lat[i] < -90 || lat[i] > 90)
	}
	return out
}

// EqualMode selects how the equal-coordinate test compares lon and lat.
type EqualMode int

// Equal-coordinate modes.
const (
	EqualAbsolute  EqualMode = iota // |lon| == |lat|
	EqualIdentical                  // lon == lat
)

// ErrUnknownEqualMode is returned for an unrecognised equal mode.
var ErrUnknownEqualMode = errors.New("checks: unknown equal mode")

// ParseEqualMode parses "absolute" or "identical".
func ParseEqualMode(s string) (EqualMode, error) {
	switch strings.ToLower(s) {
	case "absolute", "":
		return EqualAbsolute, nil
	case "identical":
		return EqualIdentical, nil
	}
	return 0, eris.Wrapf(ErrUnknownEqualMode, "checks: equal mode %q", s)
}

func (m EqualMode) String() string {
	if m == EqualIdentical {
		return "identical"
	}
	return "absolute"
}

// Equal fails records whose longitude equals their latitude.
func Equal(lon, lat []float64, mode EqualMode) []bool {
	out := make([]bool, len(lon))
	for i := range lon {
		if mode == EqualIdentical {
			out[i] = lon[i] != lat[i]
		} else {
			out[i] = math.Abs(lon[i]) != math.Abs(lat[i])
		}
	}
	return out
}

// Zeros fails records on the equator or prime meridian, or within buffer
// degrees of (0, 0).
func Zeros(lon, lat []float64, buffer float64) []bool {
	out := make([]bool, len(lon))
	r2 := buffer * buffer
	for i := range lon {
		out[i] = !(lon[i] == 0 || lat[i] == 0 || lon[i]*lon[i]+lat[i]*lat[i] <= r2)
	}
	return out
}

// Duplicates fails every record whose (lon, lat, species, additions...) key
// was already seen earlier in the set. The first occurrence passes.
func Duplicates(lon, lat []float64, species []string, additions [][]string) []bool {
	out := make([]bool, len(lon))
	seen := make(map[string]struct{}, len(lon))
	var sb strings.Builder
	for i := range lon {
		sb.Reset()
		sb.WriteString(strconv.FormatFloat(lon[i], 'g', -1, 64))
		sb.WriteByte(0x1f)
		sb.WriteString(strconv.FormatFloat(lat[i], 'g', -1, 64))
		sb.WriteByte(0x1f)
		sb.WriteString(species[i])
		for _, col := range additions {
			sb.WriteByte(0x1f)
			sb.WriteString(col[i])
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[i] = true
	}
	return out
}
