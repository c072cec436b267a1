package reference

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/coordclean/internal/geodist"
	"github.com/sells-group/coordclean/internal/occurrence"
)

// Range is a species' natural-range bounding box.
type Range struct {
	Species string
	Bounds  *geom.Bounds
}

// NewRange builds a range box.
func NewRange(species string, minLon, minLat, maxLon, maxLat float64) Range {
	return Range{
		Species: species,
		Bounds:  geom.NewBounds(geom.XY).Set(minLon, minLat, maxLon, maxLat),
	}
}

// Contains reports whether the point lies in the box grown by buffer meters
// on every side, using the fixed 111 km/degree conversion.
func (r Range) Contains(lon, lat, buffer float64) bool {
	b := r.Bounds
	if buffer != 0 {
		d := buffer / geodist.BufferDegreeMeters
		b = geom.NewBounds(geom.XY).Set(b.Min(0)-d, b.Min(1)-d, b.Max(0)+d, b.Max(1)+d)
	}
	return b.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}

// Ranges is a list of range boxes; a species may have several.
type Ranges []Range

// BySpecies indexes the boxes by species label.
func (rs Ranges) BySpecies() map[string][]Range {
	out := make(map[string][]Range, len(rs))
	for _, r := range rs {
		out[r.Species] = append(out[r.Species], r)
	}
	return out
}

type rangeEntry struct {
	Species string  `yaml:"species"`
	MinLon  float64 `yaml:"min_lon"`
	MinLat  float64 `yaml:"min_lat"`
	MaxLon  float64 `yaml:"max_lon"`
	MaxLat  float64 `yaml:"max_lat"`
}

// LoadRanges reads range boxes from a YAML (.yaml/.yml) or CSV file.
func LoadRanges(ctx context.Context, path string) (Ranges, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadRangesYAML(path)
	default:
		return LoadRangesCSV(ctx, path)
	}
}

// LoadRangesYAML reads a document of the form `ranges: [{species, min_lon, ...}]`.
func LoadRangesYAML(path string) (Ranges, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ranges: read %s", path)
	}

	var doc struct {
		Ranges []rangeEntry `yaml:"ranges"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "ranges: parse yaml")
	}

	out := make(Ranges, 0, len(doc.Ranges))
	for i, e := range doc.Ranges {
		if e.Species == "" {
			return nil, eris.Errorf("ranges: entry %d has no species", i)
		}
		out = append(out, NewRange(e.Species, e.MinLon, e.MinLat, e.MaxLon, e.MaxLat))
	}
	return out, nil
}

// LoadRangesCSV reads a table with species,min_lon,min_lat,max_lon,max_lat columns.
func LoadRangesCSV(ctx context.Context, path string) (Ranges, error) {
	header, rows, err := occurrence.ReadCSVFile(ctx, path, occurrence.CSVOptions{})
	if err != nil {
		return nil, err
	}

	cols := []string{"species", "min_lon", "min_lat", "max_lon", "max_lat"}
	idx := make([]int, len(cols))
	for i, c := range cols {
		idx[i] = findColumn(header, []string{c})
		if idx[i] < 0 {
			return nil, eris.Errorf("ranges: missing column %q", c)
		}
	}

	out := make(Ranges, 0, len(rows))
	for r, row := range rows {
		var v [4]float64
		for k := 0; k < 4; k++ {
			f, err := strconv.ParseFloat(field(row, idx[k+1]), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "ranges: row %d column %s", r+1, cols[k+1])
			}
			v[k] = f
		}
		out = append(out, NewRange(field(row, idx[0]), v[0], v[1], v[2], v[3]))
	}
	return out, nil
}
