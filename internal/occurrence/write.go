package occurrence

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// WriteCSV writes a header and rows.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "csv: write rows")
	}
	return nil
}

// Table returns the dataset as a header plus string rows. A dataset without a
// backing table is rendered from its records.
func (d *Dataset) Table() ([]string, [][]string) {
	if d.Header != nil {
		return d.Header, d.Rows
	}
	header := []string{DefaultLonCol, DefaultLatCol, DefaultSpeciesCol}
	if d.HasCountry {
		header = append(header, DefaultCountryCol)
	}
	header = append(header, d.Additions...)

	rows := make([][]string, len(d.Records))
	for i, r := range d.Records {
		row := []string{formatFloat(r.Lon), formatFloat(r.Lat), r.Species}
		if d.HasCountry {
			row = append(row, r.Country)
		}
		for _, a := range d.Additions {
			row = append(row, r.Extra[a])
		}
		rows[i] = row
	}
	return header, rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
