package cleaner

import (
	"context"

	"github.com/sells-group/coordclean/internal/checks"
	"github.com/sells-group/coordclean/internal/outlier"
)

// Test is one configured coordinate test. Run returns a pass mask aligned
// with the input records.
type Test interface {
	Kind() Kind
	Requires() RefSet
	Run(ctx context.Context, in *Input) ([]bool, error)
}

// Advisor is implemented by tests whose configuration can look inconsistent.
// The advice is reported but never changes the result.
type Advisor interface {
	Advice() []string
}

// ValidityTest fails missing or out-of-range coordinates.
type ValidityTest struct{}

func (ValidityTest) Kind() Kind       { return KindValidity }
func (ValidityTest) Requires() RefSet { return 0 }
func (ValidityTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Validity(in.Lon, in.Lat), nil
}

// EqualTest fails records whose longitude equals their latitude.
type EqualTest struct {
	Mode checks.EqualMode
}

func (EqualTest) Kind() Kind       { return KindEqual }
func (EqualTest) Requires() RefSet { return 0 }
func (t EqualTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Equal(in.Lon, in.Lat, t.Mode), nil
}

// ZerosTest fails records on the axes or near (0, 0). Buffer is in degrees.
type ZerosTest struct {
	Buffer float64
}

func (ZerosTest) Kind() Kind       { return KindZeros }
func (ZerosTest) Requires() RefSet { return 0 }
func (t ZerosTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Zeros(in.Lon, in.Lat, t.Buffer), nil
}

// CapitalsTest fails records within Buffer meters of a capital.
type CapitalsTest struct {
	Buffer float64
	Geod   bool
}

func (CapitalsTest) Kind() Kind       { return KindCapitals }
func (CapitalsTest) Requires() RefSet { return RefCapitals }
func (t CapitalsTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Capitals(in.Lon, in.Lat, in.Refs.Capitals, t.Buffer, t.Geod), nil
}

// CentroidsTest fails records near country or province centroids.
type CentroidsTest struct {
	checks.CentroidOptions
}

func (CentroidsTest) Kind() Kind       { return KindCentroids }
func (CentroidsTest) Requires() RefSet { return RefCentroids }
func (t CentroidsTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Centroids(in.Lon, in.Lat, in.Refs.Centroids, t.CentroidOptions), nil
}
func (t CentroidsTest) Advice() []string { return checks.CentroidAdvice(t.CentroidOptions) }

// SeasTest fails records outside every land polygon.
type SeasTest struct{}

func (SeasTest) Kind() Kind       { return KindSeas }
func (SeasTest) Requires() RefSet { return RefSeas }
func (SeasTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Seas(in.Lon, in.Lat, in.Refs.Seas), nil
}

// UrbanTest fails records inside an urban polygon.
type UrbanTest struct{}

func (UrbanTest) Kind() Kind       { return KindUrban }
func (UrbanTest) Requires() RefSet { return RefUrban }
func (UrbanTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Urban(in.Lon, in.Lat, in.Refs.Urban), nil
}

// CountriesTest passes records within Buffer meters of their own country's
// reference point.
type CountriesTest struct {
	Buffer float64
}

func (CountriesTest) Kind() Kind       { return KindCountries }
func (CountriesTest) Requires() RefSet { return RefCountries | RefCountryCodes }
func (t CountriesTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Countries(in.Lon, in.Lat, in.Countries, in.Refs.Countries, t.Buffer), nil
}

// OutliersTest fails records the outlier engine flags within their species.
type OutliersTest struct {
	outlier.Config
}

func (OutliersTest) Kind() Kind       { return KindOutliers }
func (OutliersTest) Requires() RefSet { return 0 }
func (t OutliersTest) Run(ctx context.Context, in *Input) ([]bool, error) {
	flagged, err := outlier.Detect(ctx, in.Lon, in.Lat, in.Species, t.Config)
	if err != nil {
		return nil, err
	}
	pass := make([]bool, len(flagged))
	for i, f := range flagged {
		pass[i] = !f
	}
	return pass, nil
}

// GBIFTest passes only records near the configured default point.
type GBIFTest struct {
	checks.DefaultPointOptions
}

func (GBIFTest) Kind() Kind       { return KindGBIF }
func (GBIFTest) Requires() RefSet { return 0 }
func (t GBIFTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.DefaultPoint(in.Lon, in.Lat, t.DefaultPointOptions), nil
}

// InstitutionsTest fails records near biodiversity institutions.
type InstitutionsTest struct {
	checks.InstitutionOptions
}

func (InstitutionsTest) Kind() Kind       { return KindInstitutions }
func (InstitutionsTest) Requires() RefSet { return RefInstitutions }
func (t InstitutionsTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Institutions(in.Lon, in.Lat, in.Species, in.Refs.Institutions, t.InstitutionOptions), nil
}

// RangeTest passes records inside their species' range box.
type RangeTest struct {
	Buffer float64
}

func (RangeTest) Kind() Kind       { return KindRange }
func (RangeTest) Requires() RefSet { return RefRanges }
func (t RangeTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Range(in.Lon, in.Lat, in.Species, in.Refs.Ranges, t.Buffer), nil
}

// DuplicatesTest fails repeated (lon, lat, species, additions) keys.
type DuplicatesTest struct{}

func (DuplicatesTest) Kind() Kind       { return KindDuplicates }
func (DuplicatesTest) Requires() RefSet { return 0 }
func (DuplicatesTest) Run(_ context.Context, in *Input) ([]bool, error) {
	return checks.Duplicates(in.Lon, in.Lat, in.Species, in.Additions), nil
}

// DefaultTest returns the test for k with its stock parameters.
func DefaultTest(k Kind) Test {
	switch k {
	case KindEqual:
		return EqualTest{Mode: checks.EqualAbsolute}
	case KindZeros:
		return ZerosTest{Buffer: 0.5}
	case KindCapitals:
		return CapitalsTest{Buffer: 10000, Geod: true}
	case KindCentroids:
		return CentroidsTest{checks.CentroidOptions{Buffer: 1000, Geod: true, Verify: true}}
	case KindSeas:
		return SeasTest{}
	case KindUrban:
		return UrbanTest{}
	case KindCountries:
		return CountriesTest{}
	case KindOutliers:
		return OutliersTest{outlier.DefaultConfig()}
	case KindGBIF:
		return GBIFTest{checks.DefaultPointOptions{MaxDist: 100000}}
	case KindInstitutions:
		return InstitutionsTest{checks.InstitutionOptions{Buffer: 100, VerifyMltpl: 10}}
	case KindRange:
		return RangeTest{}
	case KindDuplicates:
		return DuplicatesTest{}
	}
	return ValidityTest{}
}
