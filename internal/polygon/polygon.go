// Package polygon implements even-odd point-in-polygon membership over
// go-geom polygons.
package polygon

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Polygon is a single implicitly closed ring. A repeated closing vertex is
// harmless: the zero-length edge it forms never crosses the test ray.
type Polygon struct {
	g      *geom.Polygon
	flat   []float64
	bounds *geom.Bounds
}

// New builds a polygon from (x, y) vertices. At least three are required.
func New(vertices [][2]float64) (*Polygon, error) {
	if len(vertices) < 3 {
		return nil, eris.Errorf("polygon: need at least 3 vertices, got %d", len(vertices))
	}
	flat := make([]float64, 0, len(vertices)*2)
	for _, v := range vertices {
		flat = append(flat, v[0], v[1])
	}
	return fromFlat(flat)
}

// FromGeom wraps the exterior ring of g. Interior rings are ignored.
func FromGeom(g *geom.Polygon) (*Polygon, error) {
	if g == nil || g.NumLinearRings() == 0 {
		return nil, eris.New("polygon: empty geometry")
	}
	ring := g.LinearRing(0)
	stride := g.Layout().Stride()
	src := ring.FlatCoords()
	flat := make([]float64, 0, ring.NumCoords()*2)
	for i := 0; i+1 < len(src); i += stride {
		flat = append(flat, src[i], src[i+1])
	}
	if len(flat) < 6 {
		return nil, eris.Errorf("polygon: need at least 3 vertices, got %d", len(flat)/2)
	}
	return fromFlat(flat)
}

func fromFlat(flat []float64) (*Polygon, error) {
	g := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
	return &Polygon{g: g, flat: flat, bounds: g.Bounds()}, nil
}

// Geom returns the underlying go-geom polygon.
func (p *Polygon) Geom() *geom.Polygon { return p.g }

// Bounds returns the polygon's bounding box.
func (p *Polygon) Bounds() *geom.Bounds { return p.bounds }

// NumVertices returns the number of stored vertices.
func (p *Polygon) NumVertices() int { return len(p.flat) / 2 }

// Contains reports whether (x, y) lies inside the polygon using ray casting.
// Membership of points exactly on an edge is unspecified.
func (p *Polygon) Contains(x, y float64) bool {
	if !p.bounds.OverlapsPoint(geom.XY, geom.Coord{x, y}) {
		return false
	}
	n := len(p.flat) / 2
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := p.flat[2*i], p.flat[2*i+1]
		xj, yj := p.flat[2*j], p.flat[2*j+1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// Set is an unordered collection of polygons.
type Set []*Polygon

// ContainsAny reports whether any polygon in the set contains (x, y).
func (s Set) ContainsAny(x, y float64) bool {
	for _, p := range s {
		if p.Contains(x, y) {
			return true
		}
	}
	return false
}

// Mask returns, per point, whether it lies inside any polygon of the set.
func (s Set) Mask(xs, ys []float64) []bool {
	out := make([]bool, len(xs))
	for i := range xs {
		out[i] = s.ContainsAny(xs[i], ys[i])
	}
	return out
}
