package occurrence

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTable_Basic(t *testing.T) {
	header := []string{"gbifID", "species", "decimalLongitude", "decimalLatitude", "countryCode"}
	rows := [][]string{
		{"1", "Puma concolor", "-97.75", "30.33", "USA"},
		{"2", "Puma concolor", "", "30.33", "USA"},
		{"3", "Lynx lynx", "abc", "NA", "SWE"},
	}

	ds, err := FromTable(header, rows, DefaultColumns())
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.True(t, ds.HasCountry)

	assert.InDelta(t, -97.75, ds.Records[0].Lon, 1e-12)
	assert.Equal(t, "Puma concolor", ds.Records[0].Species)
	assert.Equal(t, "USA", ds.Records[0].Country)
	assert.True(t, math.IsNaN(ds.Records[1].Lon))
	assert.True(t, math.IsNaN(ds.Records[2].Lon))
	assert.True(t, math.IsNaN(ds.Records[2].Lat))
	assert.Equal(t, []string{"USA", "USA", "SWE"}, ds.Countries())
}

func TestFromTable_CaseInsensitiveHeader(t *testing.T) {
	header := []string{"\ufeffDECIMALLONGITUDE", "decimallatitude", "Species"}
	ds, err := FromTable(header, [][]string{{"1", "2", "a"}}, DefaultColumns())
	require.NoError(t, err)
	assert.InDelta(t, 1, ds.Records[0].Lon, 1e-12)
	assert.False(t, ds.HasCountry)
	assert.Nil(t, ds.Countries())
}

func TestFromTable_MissingColumn(t *testing.T) {
	_, err := FromTable([]string{"decimalLongitude", "species"}, nil, DefaultColumns())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "decimalLatitude")
}

func TestFromTable_Additions(t *testing.T) {
	cols := DefaultColumns()
	cols.Additions = []string{"recordedBy", "eventDate"}
	header := []string{"decimalLongitude", "decimalLatitude", "species", "recordedBy", "eventDate"}
	rows := [][]string{
		{"1", "1", "a", "Smith", "2001"},
		{"1", "1", "a", "Jones"},
	}

	ds, err := FromTable(header, rows, cols)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Smith", "Jones"}, {"2001", ""}}, ds.AdditionValues())

	cols.Additions = []string{"missing"}
	_, err = FromTable(header, rows, cols)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestDataset_Subset(t *testing.T) {
	header := []string{"decimalLongitude", "decimalLatitude", "species"}
	rows := [][]string{{"1", "1", "a"}, {"2", "2", "b"}, {"3", "3", "c"}}
	ds, err := FromTable(header, rows, DefaultColumns())
	require.NoError(t, err)

	sub := ds.Subset([]bool{true, false, true})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, []string{"a", "c"}, sub.Species())
	assert.Equal(t, [][]string{{"1", "1", "a"}, {"3", "3", "c"}}, sub.Rows)
	assert.Equal(t, header, sub.Header)
}

func TestDataset_TableFromRecords(t *testing.T) {
	ds := FromRecords([]Record{
		{Lon: 1.5, Lat: -2, Species: "a", Country: "BRA", Extra: map[string]string{"year": "1999"}},
	}, true, []string{"year"})

	header, rows := ds.Table()
	assert.Equal(t, []string{"decimalLongitude", "decimalLatitude", "species", "countryCode", "year"}, header)
	assert.Equal(t, [][]string{{"1.5", "-2", "a", "BRA", "1999"}}, rows)
}
