package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const occurrencesCSV = `gbifID,decimalLongitude,decimalLatitude,species,countryCode
1,13.405,52.52,Apis mellifera,DE
2,10,10,Apis mellifera,NG
3,20.5,41.3,Bombus terrestris,AL
4,20.5,41.3,Bombus terrestris,AL
5,-60.2,-30.1,Bombus terrestris,AR
`

const capitalsCSV = `capital,longitude,latitude,ISO3
Berlin,13.405,52.52,DEU
`

// setupWorkspace writes an input table, a capitals reference and a config
// file into a temp dir and makes it the working directory.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile("occ.csv", []byte(occurrencesCSV), 0o644))
	require.NoError(t, os.WriteFile("capitals.csv", []byte(capitalsCSV), 0o644))
	require.NoError(t, os.WriteFile("coordclean.yaml", []byte(`
log:
  level: error
clean:
  tests: [capitals, equal, duplicates, seas]
references:
  capitals: capitals.csv
`), 0o644))
	return dir
}

func resetCleanFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		for _, name := range []string{"input", "format", "query", "tests", "value", "report", "output-table"} {
			_ = cleanCmd.Flags().Set(name, "")
		}
		_ = cleanCmd.Flags().Set("output", "-")
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCleanCommand_Flagged(t *testing.T) {
	setupWorkspace(t)
	resetCleanFlags(t)

	out, err := execute(t, "clean", "--input", "occ.csv", "--report", "report.json")
	require.NoError(t, err)

	rows := readCSV(t, out)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{
		"gbifID", "decimalLongitude", "decimalLatitude", "species", "countryCode",
		".capitals", ".equal", ".duplicates", ".summary",
	}, rows[0])
	assert.Equal(t, []string{"1", "13.405", "52.52", "Apis mellifera", "DE", "false", "true", "true", "false"}, rows[1])
	assert.Equal(t, "false", rows[2][8])
	assert.Equal(t, "true", rows[3][8])
	assert.Equal(t, "false", rows[4][8])
	assert.Equal(t, "true", rows[5][8])

	data, err := os.ReadFile("report.json")
	require.NoError(t, err)
	var report struct {
		RunID   string   `json:"run_id"`
		Records int      `json:"records"`
		Skipped []string `json:"skipped"`
		Summary []bool   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, []string{"seas"}, report.Skipped)
	assert.Equal(t, []bool{false, false, true, false, true}, report.Summary)
}

func TestCleanCommand_CleanToFile(t *testing.T) {
	dir := setupWorkspace(t)
	resetCleanFlags(t)

	outPath := filepath.Join(dir, "clean.csv")
	_, err := execute(t, "clean", "--input", "occ.csv", "--value", "clean", "--tests", "capitals,equal,duplicates", "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	rows := readCSV(t, string(data))
	require.Len(t, rows, 3)
	assert.Equal(t, "gbifID", rows[0][0])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "5", rows[2][0])
}

func TestCleanCommand_InvalidCoordinates(t *testing.T) {
	setupWorkspace(t)
	resetCleanFlags(t)
	require.NoError(t, os.WriteFile("bad.csv", []byte("decimalLongitude,decimalLatitude,species\n10,10,a\nNA,5,a\n"), 0o644))

	_, err := execute(t, "clean", "--input", "bad.csv", "--tests", "zeros")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid coordinates")
}

func TestCleanCommand_ShortRowsKeepColumnsAligned(t *testing.T) {
	setupWorkspace(t)
	resetCleanFlags(t)
	require.NoError(t, os.WriteFile("ragged.csv", []byte("species,decimalLongitude,decimalLatitude,note\nsp,11,21\nsp,0,0,origin\n"), 0o644))

	out, err := execute(t, "clean", "--input", "ragged.csv", "--tests", "zeros")
	require.NoError(t, err)

	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"species", "decimalLongitude", "decimalLatitude", "note", ".zeros", ".summary"}, rows[0])
	assert.Equal(t, []string{"sp", "11", "21", "", "true", "true"}, rows[1])
	assert.Equal(t, []string{"sp", "0", "0", "origin", "false", "false"}, rows[2])
}

func TestCleanCommand_OutputTableNeedsPostgres(t *testing.T) {
	setupWorkspace(t)
	resetCleanFlags(t)

	_, err := execute(t, "clean", "--input", "occ.csv", "--tests", "equal", "--output-table", "cleaned")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output-table needs a postgres input")
}

func TestCleanCommand_UnknownTest(t *testing.T) {
	setupWorkspace(t)
	resetCleanFlags(t)

	_, err := execute(t, "clean", "--input", "occ.csv", "--tests", "volcanoes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown test")
}

func TestCleanCommand_SQLite(t *testing.T) {
	dir := setupWorkspace(t)
	resetCleanFlags(t)

	dbPath := filepath.Join(dir, "occ.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE occurrences (decimalLongitude REAL, decimalLatitude REAL, species TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO occurrences VALUES (0, 12, 'a'), (20.5, 41.3, 'b')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, "clean", "--input", dbPath, "--tests", "zeros")
	require.NoError(t, err)

	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"decimalLongitude", "decimalLatitude", "species", ".zeros", ".summary"}, rows[0])
	assert.Equal(t, "false", rows[1][4])
	assert.Equal(t, "true", rows[2][4])
}

func TestTestsCommand(t *testing.T) {
	setupWorkspace(t)

	out, err := execute(t, "tests")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 14)
	assert.Contains(t, lines[0], "REQUIRES")

	byTest := make(map[string][]string)
	for _, l := range lines[1:] {
		f := strings.Fields(l)
		byTest[f[0]] = f
	}
	assert.Equal(t, []string{"capitals", "capitals", "ok", "yes"}, byTest["capitals"])
	assert.Equal(t, []string{"seas", "seas", "missing", "yes"}, byTest["seas"])
	assert.Equal(t, []string{"zeros", "-", "ok"}, byTest["zeros"])
	assert.Equal(t, []string{"countries", "countries,country_codes", "missing"}, byTest["countries"])
}
