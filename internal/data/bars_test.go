package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grid-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize(t *testing.T) {
	in := []model.PriceBar{
		{Timestamp: day(3), Close: 12},
		{Timestamp: day(1), Close: 10},
		{Timestamp: day(2), Close: 0},
		{Timestamp: day(3), Close: 13},
		{Timestamp: time.Time{}, Close: 5},
		{Timestamp: day(4), Close: 14},
	}
	out := Normalize(in)

	require.Len(t, out, 3)
	assert.Equal(t, []float64{10, 13, 14}, []float64{out[0].Close, out[1].Close, out[2].Close})
	assert.Equal(t, 12.0, in[0].Close, "input untouched")

	s, err := NewSeries(in)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestReadBarsCSV(t *testing.T) {
	raw := "datetime,open,high,low,close,volume\n" +
		"2024-01-02,10,11,9.5,10.5,1000\n" +
		"2024-01-03 00:00:00,10.5,10.8,10.1,10.2,\n"
	bars, err := ReadBarsCSV(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, model.PriceBar{Timestamp: day(2), Open: 10, High: 11, Low: 9.5, Close: 10.5, Volume: 1000}, bars[0])
	assert.Equal(t, 10.2, bars[1].Close)
	assert.Zero(t, bars[1].Volume)
}

func TestReadBarsCSV_CloseOnly(t *testing.T) {
	bars, err := ReadBarsCSV(strings.NewReader("date,close\n20240105,7\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 7.0, bars[0].Open)
	assert.Equal(t, 7.0, bars[0].High)
}

func TestReadBarsCSV_Errors(t *testing.T) {
	_, err := ReadBarsCSV(strings.NewReader("date,open\n2024-01-01,1\n"))
	assert.ErrorIs(t, err, model.ErrInvalidSeries)

	_, err = ReadBarsCSV(strings.NewReader("date,close\nyesterday,1\n"))
	assert.Error(t, err)

	bars, err := ReadBarsCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, bars)
}

func TestWriteThenLoadBarsCSV(t *testing.T) {
	series := model.MustPriceSeries([]model.PriceBar{
		{Timestamp: day(1), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Timestamp: day(2), Open: 1.5, High: 1.7, Low: 1.2, Close: 1.25, Volume: 20},
	})
	path := filepath.Join(t.TempDir(), "nested", "bars.csv")
	require.NoError(t, WriteBarsCSV(path, series))

	got, err := LoadBarsCSV(path)
	require.NoError(t, err)
	require.Equal(t, series.Len(), got.Len())
	for i := 0; i < got.Len(); i++ {
		assert.True(t, series.At(i).Timestamp.Equal(got.At(i).Timestamp))
		assert.Equal(t, series.At(i).Close, got.At(i).Close)
		assert.Equal(t, series.At(i).Volume, got.At(i).Volume)
	}
}

func TestLoadBarsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.json")
	raw := `[{"timestamp":"2024-01-02T00:00:00Z","close":11},{"timestamp":"2024-01-01T00:00:00Z","close":10}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s, err := LoadBarsJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, s.Closes())

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadBarsJSON(path)
	assert.Error(t, err)
}
