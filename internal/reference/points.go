package reference

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/coordclean/internal/occurrence"
)

// PointSchema lists accepted column names, in priority order, for each field
// of a reference point table.
type PointSchema struct {
	Lon   []string
	Lat   []string
	Label []string
	Type  []string
}

// Schemas for the bundled reference tables.
var (
	CapitalsSchema = PointSchema{
		Lon:   []string{"capital.lon", "longitude", "lon"},
		Lat:   []string{"capital.lat", "latitude", "lat"},
		Label: []string{"iso3", "iso_a3"},
	}
	CentroidsSchema = PointSchema{
		Lon:   []string{"centroid.lon", "longitude", "lon"},
		Lat:   []string{"centroid.lat", "latitude", "lat"},
		Label: []string{"iso3", "iso_a3"},
		Type:  []string{"type"},
	}
	CountriesSchema = PointSchema{
		Lon:   []string{"centroid.lon", "longitude", "lon"},
		Lat:   []string{"centroid.lat", "latitude", "lat"},
		Label: []string{"iso3", "iso_a3", "iso_a2", "iso2"},
	}
	InstitutionsSchema = PointSchema{
		Lon:   []string{"decimalLongitude", "longitude", "lon"},
		Lat:   []string{"decimalLatitude", "latitude", "lat"},
		Label: []string{"name", "institution"},
	}
)

// LoadPointsCSV reads a reference point table. Rows with unparsable
// coordinates are skipped.
func LoadPointsCSV(ctx context.Context, path string, schema PointSchema) (Points, error) {
	header, rows, err := occurrence.ReadCSVFile(ctx, path, occurrence.CSVOptions{LazyQuotes: true})
	if err != nil {
		return nil, err
	}
	return ParsePoints(header, rows, schema)
}

// ParsePoints converts a table into reference points.
func ParsePoints(header []string, rows [][]string, schema PointSchema) (Points, error) {
	lonIdx := findColumn(header, schema.Lon)
	latIdx := findColumn(header, schema.Lat)
	if lonIdx < 0 || latIdx < 0 {
		return nil, eris.Errorf("reference: no coordinate columns among %v / %v", schema.Lon, schema.Lat)
	}
	labelIdx := findColumn(header, schema.Label)
	typeIdx := findColumn(header, schema.Type)

	pts := make(Points, 0, len(rows))
	var skipped int
	for _, row := range rows {
		lon, errLon := strconv.ParseFloat(field(row, lonIdx), 64)
		lat, errLat := strconv.ParseFloat(field(row, latIdx), 64)
		if errLon != nil || errLat != nil {
			skipped++
			continue
		}
		pts = append(pts, Point{
			Lon:   lon,
			Lat:   lat,
			Label: field(row, labelIdx),
			Type:  strings.ToLower(field(row, typeIdx)),
		})
	}
	if skipped > 0 {
		zap.L().Debug("reference: skipped rows without coordinates", zap.Int("skipped", skipped))
	}
	return pts, nil
}

func findColumn(header []string, candidates []string) int {
	for _, c := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				return i
			}
		}
	}
	return -1
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
