// Package geodist provides the distance primitives shared by every coordinate
// test that needs a physical distance between two lon/lat pairs.
package geodist

import "math"

// Earth constants used by the default model.
const (
	EarthRadius     = 6371000.0 // mean Earth radius in meters
	MetersPerDegree = 111319.9  // planar scale for one degree of arc
)

// Fixed meter-per-degree divisors used to convert meter buffers into degrees.
// They are uniform across latitude, so they overestimate east-west extent near
// the poles. Callers depend on the exact thresholds they produce.
const (
	BufferDegreeMeters   = 111000.0
	CentroidDegreeMeters = 111320.0
)

const degToRad = math.Pi / 180.0

// Func computes the distance between two lon/lat pairs.
type Func func(lon1, lat1, lon2, lat2 float64) float64

// Model carries the constants behind the geodesic and planar distances so that
// tests can substitute synthetic values.
type Model struct {
	Radius          float64
	MetersPerDegree float64
}

// Default is the model used by the package-level functions.
var Default = Model{Radius: EarthRadius, MetersPerDegree: MetersPerDegree}

// Geodesic returns the haversine great-circle distance in meters.
// NaN inputs yield NaN.
func (m Model) Geodesic(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	// Rounding can push a past 1 for antipodal points.
	if a > 1 {
		a = 1
	}
	return 2 * m.Radius * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Planar returns the flat-Earth distance in meters: the longitude difference
// is scaled by the cosine of the mean latitude and both axes are treated as
// Cartesian degrees.
func (m Model) Planar(lon1, lat1, lon2, lat2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)*degToRad/2)
	y := lat2 - lat1
	return m.MetersPerDegree * math.Sqrt(x*x+y*y)
}

// Geodesic returns the haversine distance under the default model.
func Geodesic(lon1, lat1, lon2, lat2 float64) float64 {
	return Default.Geodesic(lon1, lat1, lon2, lat2)
}

// Planar returns the planar distance under the default model.
func Planar(lon1, lat1, lon2, lat2 float64) float64 {
	return Default.Planar(lon1, lat1, lon2, lat2)
}

// Euclidean returns the straight-line distance in raw coordinate units.
func Euclidean(lon1, lat1, lon2, lat2 float64) float64 {
	dx := lon2 - lon1
	dy := lat2 - lat1
	return math.Sqrt(dx*dx + dy*dy)
}

// For returns Geodesic when geod is set and Planar otherwise.
func (m Model) For(geod bool) Func {
	if geod {
		return m.Geodesic
	}
	return m.Planar
}

// For selects a distance function from the default model.
func For(geod bool) Func {
	return Default.For(geod)
}
