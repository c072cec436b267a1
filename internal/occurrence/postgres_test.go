package occurrence

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSource_Query(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := mock.NewRows([]string{"species", "decimalLongitude", "decimalLatitude"}).
		AddRow("Puma concolor", -97.75, 30.33).
		AddRow("Lynx lynx", 15.5, nil)
	mock.ExpectQuery("SELECT species").WithArgs("Felidae").WillReturnRows(rows)

	src := NewPostgresSource(mock)
	header, got, err := src.Query(context.Background(),
		"SELECT species, decimalLongitude, decimalLatitude FROM occurrence WHERE family = $1", "Felidae")
	require.NoError(t, err)
	assert.Equal(t, []string{"species", "decimalLongitude", "decimalLatitude"}, header)
	assert.Equal(t, [][]string{{"Puma concolor", "-97.75", "30.33"}, {"Lynx lynx", "15.5", ""}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").WillReturnError(fmt.Errorf("connection refused"))

	_, _, err = NewPostgresSource(mock).Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: query records")
}
