package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-backtest/internal/model"
)

func TestSummarize(t *testing.T) {
	series := dailySeries(t, 100, 110, 90, 100)
	s := Summarize(series, 252)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, series.First().Timestamp, s.Start)
	assert.Equal(t, series.Last().Timestamp, s.End)
	assert.Equal(t, 90.0, s.MinClose)
	assert.Equal(t, 110.0, s.MaxClose)
	assert.InDelta(t, 100.0, s.MeanClose, 1e-12)
	assert.InDelta(t, 0.0, s.BuyAndHoldReturn, 1e-12)
	assert.Greater(t, s.Volatility, 0.0)
	require.GreaterOrEqual(t, s.P95Close, s.P05Close)
	assert.GreaterOrEqual(t, s.RelativeSpread, 0.0)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, SeriesSummary{}, Summarize(model.PriceSeries{}, 252))
}
