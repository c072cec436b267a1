package checks

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coordclean/internal/geodist"
	"github.com/sells-group/coordclean/internal/polygon"
	"github.com/sells-group/coordclean/internal/reference"
)

// Proximity fails a record as soon as one reference point lies within buffer
// under dist.
func Proximity(lon, lat []float64, refs reference.Points, buffer float64, dist geodist.Func) []bool {
	out := make([]bool, len(lon))
	for i := range lon {
		out[i] = true
		for _, r := range refs {
			if dist(lon[i], lat[i], r.Lon, r.Lat) <= buffer {
				out[i] = false
				break
			}
		}
	}
	return out
}

// Capitals fails records within buffer meters of a capital city.
func Capitals(lon, lat []float64, refs reference.Points, buffer float64, geod bool) []bool {
	return Proximity(lon, lat, refs, buffer, geodist.For(geod))
}

// CentroidDetail restricts which centroid rows are tested.
type CentroidDetail int

// Centroid detail levels.
const (
	CentroidBoth CentroidDetail = iota
	CentroidCountry
	CentroidProvinces
)

// ErrUnknownCentroidDetail is returned for an unrecognised centroid detail.
var ErrUnknownCentroidDetail = errors.New("checks: unknown centroid detail")

// ParseCentroidDetail parses "both", "country" or "provinces".
func ParseCentroidDetail(s string) (CentroidDetail, error) {
	switch strings.ToLower(s) {
	case "both", "":
		return CentroidBoth, nil
	case "country":
		return CentroidCountry, nil
	case "provinces":
		return CentroidProvinces, nil
	}
	return 0, eris.Wrapf(ErrUnknownCentroidDetail, "checks: centroid detail %q", s)
}

func (d CentroidDetail) String() string {
	switch d {
	case CentroidCountry:
		return "country"
	case CentroidProvinces:
		return "provinces"
	}
	return "both"
}

// keeps reports whether a reference row of the given type is tested.
// Untyped rows are always tested.
func (d CentroidDetail) keeps(typ string) bool {
	switch {
	case d == CentroidBoth || typ == "":
		return true
	case d == CentroidCountry:
		return typ == "country"
	default:
		return typ == "province" || typ == "provinces"
	}
}

// CentroidOptions configures the centroid test.
type CentroidOptions struct {
	Buffer float64
	Geod   bool
	Detail CentroidDetail
	Verify bool
}

// Centroids fails records close to a country or province centroid. Distance
// is Euclidean in degrees, scaled to meters by the fixed 111,320 m/degree
// factor when Geod is set and compared in degrees otherwise. With Verify, a
// flagged record is restored when another record shares its exact
// coordinates.
func Centroids(lon, lat []float64, refs reference.Points, opts CentroidOptions) []bool {
	refs = refs.Filter(func(p reference.Point) bool { return opts.Detail.keeps(p.Type) })

	out := Proximity(lon, lat, refs, opts.Buffer, func(lon1, lat1, lon2, lat2 float64) float64 {
		d := geodist.Euclidean(lon1, lat1, lon2, lat2)
		if opts.Geod {
			d *= geodist.CentroidDegreeMeters
		}
		return d
	})

	if opts.Verify {
		counts := coordCounts(lon, lat)
		for i := range out {
			if !out[i] && counts[[2]float64{lon[i], lat[i]}] > 1 {
				out[i] = true
			}
		}
	}
	return out
}

// CentroidAdvice returns the configuration warnings for a centroid buffer
// that looks inconsistent with the distance mode.
func CentroidAdvice(opts CentroidOptions) []string {
	var warnings []string
	if opts.Buffer > 10 && !opts.Geod {
		warnings = append(warnings, "centroids: using large buffer, check 'geod'")
	}
	if opts.Buffer < 100 && opts.Geod {
		warnings = append(warnings, "centroids: using small buffer, check 'geod'")
	}
	return warnings
}

func coordCounts(lon, lat []float64) map[[2]float64]int {
	counts := make(map[[2]float64]int, len(lon))
	for i := range lon {
		counts[[2]float64{lon[i], lat[i]}]++
	}
	return counts
}

// InstitutionOptions configures the institutions test.
type InstitutionOptions struct {
	Buffer      float64 // meters
	Geod        bool
	Verify      bool
	VerifyMltpl float64
}

// Institutions fails records within Buffer of a biodiversity institution.
// Without Geod the buffer is converted to degrees with the fixed
// 111 km/degree divisor and compared to the Euclidean degree distance. With
// Verify, a flagged record is restored when another record of the same
// species lies within Buffer*VerifyMltpl meters (haversine).
func Institutions(lon, lat []float64, species []string, refs reference.Points, opts InstitutionOptions) []bool {
	var out []bool
	if opts.Geod {
		out = Proximity(lon, lat, refs, opts.Buffer, geodist.Geodesic)
	} else {
		out = Proximity(lon, lat, refs, opts.Buffer/geodist.BufferDegreeMeters, geodist.Euclidean)
	}

	if !opts.Verify {
		return out
	}
	radius := opts.Buffer * opts.VerifyMltpl
	for i := range out {
		if out[i] {
			continue
		}
		for j := range lon {
			if i != j && species[i] == species[j] &&
				geodist.Geodesic(lon[i], lat[i], lon[j], lat[j]) <= radius {
				out[i] = true
				break
			}
		}
	}
	return out
}

// Countries passes a record only when it lies within buffer meters
// (haversine) of a reference point labelled with the record's own country
// code. Records whose code matches no reference fail.
func Countries(lon, lat []float64, codes []string, refs reference.Points, buffer float64) []bool {
	byCode := make(map[string]reference.Points)
	for _, r := range refs {
		byCode[r.Label] = append(byCode[r.Label], r)
	}

	out := make([]bool, len(lon))
	for i := range lon {
		for _, r := range byCode[codes[i]] {
			if geodist.Geodesic(lon[i], lat[i], r.Lon, r.Lat) <= buffer {
				out[i] = true
				break
			}
		}
	}
	return out
}

// Range passes a record only when it falls inside one of its species' range
// boxes grown by buffer meters. Species without a range fail.
func Range(lon, lat []float64, species []string, ranges reference.Ranges, buffer float64) []bool {
	by := ranges.BySpecies()
	out := make([]bool, len(lon))
	for i := range lon {
		for _, r := range by[species[i]] {
			if r.Contains(lon[i], lat[i], buffer) {
				out[i] = true
				break
			}
		}
	}
	return out
}

// DefaultPointOptions configures the default-coordinate test.
type DefaultPointOptions struct {
	Lon     float64
	Lat     float64
	MaxDist float64 // meters
}

// DefaultPoint passes records within MaxDist meters (haversine) of the
// reference point and fails the rest.
func DefaultPoint(lon, lat []float64, opts DefaultPointOptions) []bool {
	out := make([]bool, len(lon))
	for i := range lon {
		out[i] = geodist.Geodesic(lon[i], lat[i], opts.Lon, opts.Lat) <= opts.MaxDist
	}
	return out
}

// Seas fails records that fall in no land polygon.
func Seas(lon, lat []float64, land polygon.Set) []bool {
	return land.Mask(lon, lat)
}

// Urban fails records that fall in any urban polygon.
func Urban(lon, lat []float64, urban polygon.Set) []bool {
	out := urban.Mask(lon, lat)
	for i := range out {
		out[i] = !out[i]
	}
	return out
}
