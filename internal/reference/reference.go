// Package reference loads the reference datasets the proximity and polygon
// tests compare records against: capitals, country centroids, country
// reference points, biodiversity institutions, species range boxes, and land
// and urban polygon layers.
package reference

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/polygon"
)

// Point is a reference coordinate with an optional label (ISO code) and type
// (country / province for centroids).
type Point struct {
	Lon   float64 `json:"lon"`
	Lat   float64 `json:"lat"`
	Label string  `json:"label,omitempty"`
	Type  string  `json:"type,omitempty"`
}

// Points is an ordered reference point list.
type Points []Point

// Filter returns the points for which keep returns true.
func (p Points) Filter(keep func(Point) bool) Points {
	out := make(Points, 0, len(p))
	for _, pt := range p {
		if keep(pt) {
			out = append(out, pt)
		}
	}
	return out
}

// Set holds every optional reference. A nil field means the reference was not
// supplied; the tests that need it are skipped.
type Set struct {
	Capitals     Points
	Centroids    Points
	Countries    Points
	Institutions Points
	Ranges       Ranges
	Seas         polygon.Set
	Urban        polygon.Set
}

// Paths locates reference files. Empty paths are not loaded.
type Paths struct {
	Capitals     string `mapstructure:"capitals"`
	Centroids    string `mapstructure:"centroids"`
	Countries    string `mapstructure:"countries"`
	Institutions string `mapstructure:"institutions"`
	Ranges       string `mapstructure:"ranges"`
	Seas         string `mapstructure:"seas"`
	Urban        string `mapstructure:"urban"`
}

// Load reads every reference whose path is set.
func Load(ctx context.Context, paths Paths) (*Set, error) {
	set := &Set{}
	log := zap.L().With(zap.String("component", "reference"))

	points := []struct {
		name   string
		path   string
		schema PointSchema
		dst    *Points
	}{
		{"capitals", paths.Capitals, CapitalsSchema, &set.Capitals},
		{"centroids", paths.Centroids, CentroidsSchema, &set.Centroids},
		{"countries", paths.Countries, CountriesSchema, &set.Countries},
		{"institutions", paths.Institutions, InstitutionsSchema, &set.Institutions},
	}
	for _, p := range points {
		if p.path == "" {
			continue
		}
		pts, err := LoadPointsCSV(ctx, p.path, p.schema)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: load %s", p.name)
		}
		*p.dst = pts
		log.Info("loaded reference points", zap.String("reference", p.name), zap.Int("points", len(pts)))
	}

	if paths.Ranges != "" {
		ranges, err := LoadRanges(ctx, paths.Ranges)
		if err != nil {
			return nil, eris.Wrap(err, "reference: load ranges")
		}
		set.Ranges = ranges
		log.Info("loaded species ranges", zap.Int("ranges", len(ranges)))
	}

	layers := []struct {
		name string
		path string
		dst  *polygon.Set
	}{
		{"seas", paths.Seas, &set.Seas},
		{"urban", paths.Urban, &set.Urban},
	}
	for _, l := range layers {
		if l.path == "" {
			continue
		}
		polys, err := LoadPolygons(l.path)
		if err != nil {
			return nil, eris.Wrapf(err, "reference: load %s", l.name)
		}
		*l.dst = polys
		log.Info("loaded polygon layer", zap.String("reference", l.name), zap.Int("polygons", len(polys)))
	}

	return set, nil
}
