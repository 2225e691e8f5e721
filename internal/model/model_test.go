package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func TestGridConfigDefaultsAndValidation(t *testing.T) {
	cfg, err := NewGridConfig(0.05, 0.04, 100000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultGridLevels, cfg.GridLevels)
	assert.Equal(t, DefaultLotSize, cfg.LotSize)

	bad := []GridConfig{
		{UpRatio: 0, DownRatio: 0.05, InitialCash: 1, GridLevels: 1, LotSize: 1},
		{UpRatio: 1, DownRatio: 0.05, InitialCash: 1, GridLevels: 1, LotSize: 1},
		{UpRatio: 0.05, DownRatio: -0.1, InitialCash: 1, GridLevels: 1, LotSize: 1},
		{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 0, GridLevels: 1, LotSize: 1},
		{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 1, GridLevels: -1, LotSize: 1},
		{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 1, GridLevels: 1, LotSize: -100},
	}
	for i, c := range bad {
		err := c.Validate()
		assert.ErrorIs(t, err, ErrInvalidConfig, "case %d", i)
	}
}

func TestUnitSharesRoundsDownToLots(t *testing.T) {
	cfg := GridConfig{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 100000, GridLevels: 10, LotSize: 1}
	assert.True(t, cfg.CashUnit().Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "1111", cfg.UnitShares(decimal.NewFromInt(9)).String())

	cfg.LotSize = 100
	assert.Equal(t, "1100", cfg.UnitShares(decimal.NewFromInt(9)).String())
	assert.True(t, cfg.UnitShares(decimal.NewFromInt(20000)).IsZero())
	assert.True(t, cfg.UnitShares(decimal.Zero).IsZero())
}

func TestPortfolioApply(t *testing.T) {
	p, err := NewPortfolio(1000)
	require.NoError(t, err)

	price := decimal.RequireFromString("10.5")
	_, err = p.Apply(Fill{Side: SideBuy, Price: price, Shares: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, ErrInsufficientCash)
	assert.True(t, p.Cash.Equal(decimal.NewFromInt(1000)), "rejected fill must not touch the account")

	res, err := p.Apply(Fill{Side: SideBuy, Price: price, Shares: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, res.CashBefore.Equal(decimal.NewFromInt(1000)))
	assert.True(t, res.CashAfter.Equal(decimal.NewFromInt(475)))
	assert.True(t, res.Notional.Equal(decimal.NewFromInt(525)))
	assert.True(t, p.Shares.Equal(decimal.NewFromInt(50)))

	_, err = p.Apply(Fill{Side: SideSell, Price: price, Shares: decimal.NewFromInt(51)})
	assert.ErrorIs(t, err, ErrInsufficientShares)
	_, err = p.Apply(Fill{Side: SideSell, Price: price, Shares: decimal.Zero})
	assert.ErrorIs(t, err, ErrZeroShares)

	_, err = p.Apply(Fill{Side: SideSell, Price: decimal.NewFromInt(11), Shares: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, p.Cash.Equal(decimal.NewFromInt(1025)))
	assert.True(t, p.Shares.IsZero())
	assert.True(t, p.Value(decimal.NewFromInt(99)).Equal(decimal.NewFromInt(1025)))

	_, err = NewPortfolio(0)
	assert.Error(t, err)
}

func TestNewPriceSeriesRejectsBadBars(t *testing.T) {
	_, err := NewPriceSeries([]PriceBar{{Timestamp: day(1, 15), Close: 10}, {Timestamp: day(1, 15), Close: 11}})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, err = NewPriceSeries([]PriceBar{{Timestamp: day(2, 15), Close: 10}, {Timestamp: day(1, 15), Close: 11}})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, err = NewPriceSeries([]PriceBar{{Timestamp: day(1, 15), Close: 0}})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, err = NewPriceSeries([]PriceBar{{Close: 10}})
	assert.ErrorIs(t, err, ErrInvalidSeries)

	s, err := NewPriceSeries(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestPriceSeriesBetweenAndDaily(t *testing.T) {
	var bars []PriceBar
	for d := 1; d <= 5; d++ {
		bars = append(bars, PriceBar{Timestamp: day(d, 15), Close: float64(d)})
	}
	s := MustPriceSeries(bars)
	assert.Equal(t, []float64{2, 3, 4}, s.Between(day(2, 0), day(4, 0)).Closes())
	assert.Equal(t, 4, s.Between(time.Time{}, day(4, 0)).Len())
	assert.Equal(t, 4*24*time.Hour, s.Span())

	intraday := MustPriceSeries([]PriceBar{
		{Timestamp: day(2, 10), Open: 10, High: 10.2, Low: 9.8, Close: 10, Volume: 100},
		{Timestamp: day(2, 14), Open: 10.1, High: 11.5, Low: 10.1, Close: 11, Volume: 50},
		{Timestamp: day(3, 10), Open: 11, High: 12, Low: 11, Close: 12, Volume: 10},
	})
	daily := intraday.Daily()
	require.Equal(t, 2, daily.Len())
	first := daily.First()
	assert.Equal(t, day(2, 14), first.Timestamp)
	assert.Equal(t, 10.0, first.Open)
	assert.Equal(t, 11.5, first.High)
	assert.Equal(t, 9.8, first.Low)
	assert.Equal(t, 11.0, first.Close)
	assert.Equal(t, 150.0, first.Volume)
	assert.Equal(t, 12.0, daily.Last().Close)

	// Bars returns a copy.
	copied := intraday.Bars()
	copied[0].Close = 99
	assert.Equal(t, 10.0, intraday.At(0).Close)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "EMPTY_SERIES", ErrorCode(fmt.Errorf("%w: no bars", ErrEmptySeries)))
	assert.Equal(t, "INVALID_RANGE", ErrorCode(fmt.Errorf("sweep: %w", ErrInvalidRange)))
	assert.Equal(t, "COMPUTATION_FAILURE", ErrorCode(ErrComputation))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(errors.New("boom")))
}
