package cleaner

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coordclean/internal/occurrence"
	"github.com/sells-group/coordclean/internal/reference"
)

// RefSet is a bitset of the optional inputs a test can depend on.
type RefSet uint16

// Optional inputs.
const (
	RefCapitals RefSet = 1 << iota
	RefCentroids
	RefCountries
	RefInstitutions
	RefRanges
	RefSeas
	RefUrban
	// RefCountryCodes is the record-level country code column.
	RefCountryCodes
)

var refNames = []struct {
	ref  RefSet
	name string
}{
	{RefCapitals, "capitals"},
	{RefCentroids, "centroids"},
	{RefCountries, "countries"},
	{RefInstitutions, "institutions"},
	{RefRanges, "ranges"},
	{RefSeas, "seas"},
	{RefUrban, "urban"},
	{RefCountryCodes, "country_codes"},
}

// Has reports whether every bit of r is set in s.
func (s RefSet) Has(r RefSet) bool { return s&r == r }

// Names lists the set's members.
func (s RefSet) Names() []string {
	var out []string
	for _, rn := range refNames {
		if s&rn.ref != 0 {
			out = append(out, rn.name)
		}
	}
	return out
}

func (s RefSet) String() string {
	if s == 0 {
		return "none"
	}
	return strings.Join(s.Names(), ",")
}

// Input is the column-oriented record set handed to every test.
type Input struct {
	Lon     []float64
	Lat     []float64
	Species []string
	// Countries is nil when the records carry no country code.
	Countries []string
	Additions [][]string
	Refs      *reference.Set
}

// InputFromDataset extracts the test input from a dataset.
func InputFromDataset(ds *occurrence.Dataset, refs *reference.Set) *Input {
	return &Input{
		Lon:       ds.Lon(),
		Lat:       ds.Lat(),
		Species:   ds.Species(),
		Countries: ds.Countries(),
		Additions: ds.AdditionValues(),
		Refs:      refs,
	}
}

// Len returns the number of records.
func (in *Input) Len() int { return len(in.Lon) }

// Available returns the optional inputs that are present.
func (in *Input) Available() RefSet {
	var s RefSet
	if in.Countries != nil {
		s |= RefCountryCodes
	}
	r := in.Refs
	if r == nil {
		return s
	}
	if r.Capitals != nil {
		s |= RefCapitals
	}
	if r.Centroids != nil {
		s |= RefCentroids
	}
	if r.Countries != nil {
		s |= RefCountries
	}
	if r.Institutions != nil {
		s |= RefInstitutions
	}
	if r.Ranges != nil {
		s |= RefRanges
	}
	if r.Seas != nil {
		s |= RefSeas
	}
	if r.Urban != nil {
		s |= RefUrban
	}
	return s
}

func (in *Input) validate() error {
	n := in.Len()
	if len(in.Lat) != n || len(in.Species) != n {
		return eris.Errorf("cleaner: input columns differ in length (lon %d, lat %d, species %d)",
			n, len(in.Lat), len(in.Species))
	}
	if in.Countries != nil && len(in.Countries) != n {
		return eris.Errorf("cleaner: country column has %d values for %d records", len(in.Countries), n)
	}
	for i, col := range in.Additions {
		if len(col) != n {
			return eris.Errorf("cleaner: addition column %d has %d values for %d records", i, len(col), n)
		}
	}
	return nil
}
