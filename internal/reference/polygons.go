package reference

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/polygon"
)

// LoadPolygons reads a polygon layer from a shapefile (.shp) or GeoJSON
// feature collection (.geojson/.json). Every ring part becomes its own
// polygon; holes are not subtracted.
func LoadPolygons(path string) (polygon.Set, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadPolygonsShapefile(path)
	case ".geojson", ".json":
		return LoadPolygonsGeoJSON(path)
	default:
		return nil, eris.Errorf("polygons: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadPolygonsShapefile reads every polygon shape in a shapefile.
func LoadPolygonsShapefile(path string) (polygon.Set, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "polygons: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Non-nil even when no shape is usable: an empty layer is still supplied.
	set := polygon.Set{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		polys, ok := shapeToPolygons(shape)
		if !ok {
			skipped++
			continue
		}
		set = append(set, polys...)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "polygons: read shapefile %s", path)
	}

	if skipped > 0 {
		zap.L().Debug("polygons: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return set, nil
}

// shapeToPolygons converts one shapefile polygon record, one polygon per part.
func shapeToPolygons(shape shp.Shape) (polygon.Set, bool) {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, false
	}

	var out polygon.Set
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		poly, err := polygon.FromGeom(geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}))
		if err != nil {
			zap.L().Debug("polygons: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		out = append(out, poly)
	}
	return out, len(out) > 0
}

// LoadPolygonsGeoJSON reads Polygon and MultiPolygon features.
func LoadPolygonsGeoJSON(path string) (polygon.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "polygons: read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrap(err, "polygons: parse geojson")
	}

	set := polygon.Set{}
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			set = appendOrbPolygon(set, g)
		case orb.MultiPolygon:
			for _, p := range g {
				set = appendOrbPolygon(set, p)
			}
		}
	}
	return set, nil
}

func appendOrbPolygon(set polygon.Set, p orb.Polygon) polygon.Set {
	if len(p) == 0 {
		return set
	}
	vertices := make([][2]float64, len(p[0]))
	for i, pt := range p[0] {
		vertices[i] = [2]float64{pt[0], pt[1]}
	}
	poly, err := polygon.New(vertices)
	if err != nil {
		zap.L().Debug("polygons: skipping malformed geojson ring", zap.Error(err))
		return set
	}
	return append(set, poly)
}
