package occurrence

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_Basic(t *testing.T) {
	input := "species,decimalLongitude,decimalLatitude\nPuma concolor,-97.75,30.33\nLynx lynx,15.2\n"
	header, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"species", "decimalLongitude", "decimalLatitude"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Lynx lynx", "15.2"}, rows[1])
}

func TestReadCSV_TabDelimited(t *testing.T) {
	input := "species\tdecimalLongitude\tdecimalLatitude\na\t1\t2\n"
	_, rows, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: '\t'})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "1", "2"}}, rows)
}

func TestReadCSV_Latin1(t *testing.T) {
	input := []byte("species,decimalLongitude,decimalLatitude\nAbies pinsapo Boiss. \xe9,1,2\n")
	_, rows, err := ReadCSV(context.Background(), bytes.NewReader(input), CSVOptions{Encoding: "iso-8859-1"})
	require.NoError(t, err)
	assert.Equal(t, "Abies pinsapo Boiss. é", rows[0][0])
}

func TestReadCSV_UnknownCharset(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader("a\n"), CSVOptions{Encoding: "klingon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := ReadCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestReadCSVFile_RoundTripWithWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "occ.csv")
	var buf bytes.Buffer
	header := []string{"species", "decimalLongitude", "decimalLatitude"}
	rows := [][]string{{"a, with comma", "1", "2"}}
	require.NoError(t, WriteCSV(&buf, header, rows))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	gotHeader, gotRows, err := ReadCSVFile(context.Background(), path, CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, header, gotHeader)
	assert.Equal(t, rows, gotRows)
}
