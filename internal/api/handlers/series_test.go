package handlers

import (
	"context"
	"testing"
	"time"

	"grid-backtest/internal/api/models"
	"grid-backtest/internal/data"
	"grid-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesResolver_QueryDefaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	r := NewSeriesResolver(nil)
	r.now = func() time.Time { return now }

	q, err := r.Query(models.DataSourceConfig{Code: " 600000 ", Market: "sh", Frequency: "15min", Adjust: "f"})
	require.NoError(t, err)
	assert.Equal(t, "600000.SH", q.Symbol())
	assert.Equal(t, data.Freq15Min, q.Frequency)
	assert.Equal(t, data.AdjustNone, q.Adjust, "intraday bars are unadjusted")
	assert.Equal(t, now, q.End)
	assert.Equal(t, now.Add(-DefaultWindow), q.Start)

	_, err = r.Query(models.DataSourceConfig{Code: "1", StartDate: "2025-04-01"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig, "start after end")

	_, err = r.Query(models.DataSourceConfig{Code: "1", EndDate: "yesterday"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	_, err = r.Query(models.DataSourceConfig{Code: "1", Adjust: "sideways"})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestSeriesResolver_InlineBarsDaily(t *testing.T) {
	day := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	bars := []model.PriceBar{
		{Timestamp: day.Add(10 * time.Hour), Close: 10},
		{Timestamp: day.Add(14 * time.Hour), Close: 11},
		{Timestamp: day.Add(34 * time.Hour), Close: 12},
		{Timestamp: day.Add(10 * time.Hour), Close: 10.5}, // duplicate timestamp, last wins
	}
	series, q, err := NewSeriesResolver(nil).Resolve(context.Background(), models.DataSourceConfig{Bars: bars, Daily: true})
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 12}, series.Closes())
	assert.Equal(t, day.Add(10*time.Hour), q.Start)
	assert.Equal(t, day.Add(34*time.Hour), q.End)
}

func TestPeriodsPerYear(t *testing.T) {
	assert.Equal(t, 252.0, PeriodsPerYear(models.DataSourceConfig{}, 0))
	assert.Equal(t, 52.0, PeriodsPerYear(models.DataSourceConfig{Frequency: "w"}, 0))
	assert.Equal(t, 4032.0, PeriodsPerYear(models.DataSourceConfig{Frequency: "15"}, 0))
	assert.Equal(t, 252.0, PeriodsPerYear(models.DataSourceConfig{Frequency: "15", Daily: true}, 0))
	assert.Equal(t, 250.0, PeriodsPerYear(models.DataSourceConfig{Frequency: "w"}, 250))
}
