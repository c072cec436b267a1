// Package occurrence models the record table consumed by the cleaner: one row
// per occurrence with a longitude, latitude, species label and any auxiliary
// columns used for duplicate keys.
package occurrence

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingColumn is returned when a required column is absent from the table.
var ErrMissingColumn = errors.New("occurrence: missing column")

// Default column names follow Darwin Core.
const (
	DefaultLonCol     = "decimalLongitude"
	DefaultLatCol     = "decimalLatitude"
	DefaultSpeciesCol = "species"
	DefaultCountryCol = "countryCode"
)

// Columns names the table columns the cleaner reads.
type Columns struct {
	Lon       string
	Lat       string
	Species   string
	Country   string   // optional; empty or absent disables the country test
	Additions []string // extra duplicate-key columns
}

// DefaultColumns returns the Darwin Core column names.
func DefaultColumns() Columns {
	return Columns{
		Lon:     DefaultLonCol,
		Lat:     DefaultLatCol,
		Species: DefaultSpeciesCol,
		Country: DefaultCountryCol,
	}
}

// Record is a single occurrence.
type Record struct {
	Lon     float64           `json:"lon"`
	Lat     float64           `json:"lat"`
	Species string            `json:"species"`
	Country string            `json:"country,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Dataset is an ordered record set, optionally backed by the raw table it was
// parsed from so it can be written back out unchanged.
type Dataset struct {
	Header     []string
	Rows       [][]string
	Records    []Record
	HasCountry bool
	Additions  []string
}

// FromTable parses a header and string rows into a Dataset. Missing or
// unparsable coordinates become NaN and are left for the validity test.
func FromTable(header []string, rows [][]string, cols Columns) (*Dataset, error) {
	idx := indexHeader(header)

	lonIdx, err := idx.require(cols.Lon)
	if err != nil {
		return nil, err
	}
	latIdx, err := idx.require(cols.Lat)
	if err != nil {
		return nil, err
	}
	spIdx, err := idx.require(cols.Species)
	if err != nil {
		return nil, err
	}
	countryIdx, hasCountry := idx.lookup(cols.Country)

	addIdx := make([]int, len(cols.Additions))
	for i, name := range cols.Additions {
		j, err := idx.require(name)
		if err != nil {
			return nil, err
		}
		addIdx[i] = j
	}

	ds := &Dataset{
		Header:     header,
		Rows:       rows,
		Records:    make([]Record, len(rows)),
		HasCountry: hasCountry,
		Additions:  cols.Additions,
	}
	for r, row := range rows {
		rec := Record{
			Lon:     parseCoord(cell(row, lonIdx)),
			Lat:     parseCoord(cell(row, latIdx)),
			Species: cell(row, spIdx),
		}
		if hasCountry {
			rec.Country = cell(row, countryIdx)
		}
		if len(addIdx) > 0 {
			rec.Extra = make(map[string]string, len(addIdx))
			for i, j := range addIdx {
				rec.Extra[cols.Additions[i]] = cell(row, j)
			}
		}
		ds.Records[r] = rec
	}
	return ds, nil
}

// FromRecords builds a Dataset without a backing table.
func FromRecords(records []Record, hasCountry bool, additions []string) *Dataset {
	return &Dataset{Records: records, HasCountry: hasCountry, Additions: additions}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// Lon returns the longitudes in record order.
func (d *Dataset) Lon() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Lon
	}
	return out
}

// Lat returns the latitudes in record order.
func (d *Dataset) Lat() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Lat
	}
	return out
}

// Species returns the species labels in record order.
func (d *Dataset) Species() []string {
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Species
	}
	return out
}

// Countries returns the country codes, or nil when the table has none.
func (d *Dataset) Countries() []string {
	if !d.HasCountry {
		return nil
	}
	out := make([]string, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Country
	}
	return out
}

// AdditionValues returns one slice per addition column, each in record order.
func (d *Dataset) AdditionValues() [][]string {
	out := make([][]string, len(d.Additions))
	for a, name := range d.Additions {
		col := make([]string, len(d.Records))
		for i, r := range d.Records {
			col[i] = r.Extra[name]
		}
		out[a] = col
	}
	return out
}

// Subset returns the records whose keep flag is true, preserving order.
func (d *Dataset) Subset(keep []bool) *Dataset {
	out := &Dataset{Header: d.Header, HasCountry: d.HasCountry, Additions: d.Additions}
	for i, rec := range d.Records {
		if i >= len(keep) || !keep[i] {
			continue
		}
		out.Records = append(out.Records, rec)
		if d.Rows != nil {
			out.Rows = append(out.Rows, d.Rows[i])
		}
	}
	return out
}

type headerIndex struct {
	exact map[string]int
	fold  map[string]int
}

func indexHeader(header []string) headerIndex {
	idx := headerIndex{
		exact: make(map[string]int, len(header)),
		fold:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := idx.exact[h]; !ok {
			idx.exact[h] = i
		}
		key := strings.ToLower(h)
		if _, ok := idx.fold[key]; !ok {
			idx.fold[key] = i
		}
	}
	return idx
}

func (h headerIndex) lookup(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	if i, ok := h.exact[name]; ok {
		return i, true
	}
	i, ok := h.fold[strings.ToLower(name)]
	return i, ok
}

func (h headerIndex) require(name string) (int, error) {
	i, ok := h.lookup(name)
	if !ok {
		return 0, eris.Wrapf(ErrMissingColumn, "occurrence: column %q", name)
	}
	return i, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseCoord(s string) float64 {
	switch s {
	case "", "NA", "NaN", "nan", "null", "NULL":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
