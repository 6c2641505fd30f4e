package audiomoth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader_ParsesColumnsInOrder(t *testing.T) {
	var csvText = "PPS_NUMBER,TOTAL_SAMPLES\n0,0\n1,48000\n2,96000\n"

	var reader = NewCSVReader([]Column{
		{Name: "PPS_NUMBER", Parser: intColumnParser},
		{Name: "TOTAL_SAMPLES", Parser: intColumnParser},
	})

	require.NoError(t, reader.Read(strings.NewReader(csvText)))

	assert.Equal(t, 3, reader.RowCount)
	assert.Equal(t, []int64{0, 1, 2}, reader.Ints("PPS_NUMBER"))
	assert.Equal(t, []int64{0, 48000, 96000}, reader.Ints("TOTAL_SAMPLES"))
}

func TestCSVReader_SkipsMalformedRows(t *testing.T) {
	var csvText = "A,B\n1,2\n3\n4,5,6\n7,8\n"

	var reader = NewCSVReader([]Column{
		{Name: "A", Parser: intColumnParser},
		{Name: "B", Parser: intColumnParser},
	})

	require.NoError(t, reader.Read(strings.NewReader(csvText)))

	assert.Equal(t, 2, reader.RowCount)
	assert.Equal(t, []int64{1, 7}, reader.Ints("A"))
}

func TestCSVReader_RejectsMissingColumn(t *testing.T) {
	var reader = NewCSVReader([]Column{{Name: "MISSING", Parser: intColumnParser}})

	var err = reader.Read(strings.NewReader("A,B\n1,2\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, Kind(ErrInvalidArgument))
}

func TestCSVReader_Strings(t *testing.T) {
	var reader = NewCSVReader([]Column{
		{Name: "NAME", Parser: func(cell string) (interface{}, bool) { return cell, true }},
	})

	require.NoError(t, reader.Read(strings.NewReader("NAME\nalpha\nbeta\n")))
	assert.Equal(t, []string{"alpha", "beta"}, reader.Strings("NAME"))
}
