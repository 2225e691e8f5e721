package strategy

import (
	"testing"
	"time"

	"grid-backtest/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barAt(close float64) model.PriceBar {
	return model.PriceBar{Timestamp: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), Close: close}
}

func TestGridStrategyTriggers(t *testing.T) {
	cfg := model.GridConfig{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 1000, GridLevels: 2, LotSize: 1}
	s, err := NewGridStrategy(cfg, 100)
	require.NoError(t, err)
	assert.Equal(t, "grid", s.Name())

	flat := model.Portfolio{Cash: decimal.NewFromInt(1000)}
	assert.True(t, s.Decide(Context{Bar: barAt(96), Portfolio: flat}).IsHold())
	assert.True(t, s.Decide(Context{Bar: barAt(106), Portfolio: flat}).IsHold(), "nothing to sell")

	buy := s.Decide(Context{Bar: barAt(94), Portfolio: flat})
	require.Equal(t, model.SideBuy, buy.Side)
	assert.Equal(t, "5", buy.Shares.String())
	assert.NotEmpty(t, buy.Reason)

	s.OnFill(Context{Bar: barAt(94)}, model.Fill{Side: model.SideBuy, Price: decimal.NewFromInt(94), Shares: buy.Shares})
	assert.Equal(t, 94.0, s.Reference())
	assert.Equal(t, -1, s.Level())

	held := model.Portfolio{Cash: decimal.NewFromInt(530), Shares: decimal.NewFromInt(5)}
	sell := s.Decide(Context{Bar: barAt(100), Portfolio: held})
	require.Equal(t, model.SideSell, sell.Side)
	assert.Equal(t, "5", sell.Shares.String())

	s.OnFill(Context{Bar: barAt(100)}, model.Fill{Side: model.SideSell, Price: decimal.NewFromInt(100), Shares: sell.Shares})
	assert.Equal(t, 100.0, s.Reference())
	assert.Equal(t, 0, s.Level())
}

func TestGridStrategySellCappedByPosition(t *testing.T) {
	cfg := model.GridConfig{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 1000, GridLevels: 2, LotSize: 1}
	s, err := NewGridStrategy(cfg, 10)
	require.NoError(t, err)

	held := model.Portfolio{Cash: decimal.NewFromInt(900), Shares: decimal.NewFromInt(3)}
	sell := s.Decide(Context{Bar: barAt(11), Portfolio: held})
	require.Equal(t, model.SideSell, sell.Side)
	assert.Equal(t, "3", sell.Shares.String())
}

func TestNewGridStrategyErrors(t *testing.T) {
	_, err := NewGridStrategy(model.GridConfig{UpRatio: 0.05, InitialCash: 1000, GridLevels: 1, LotSize: 1}, 10)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	cfg := model.GridConfig{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 1000, GridLevels: 1, LotSize: 1}
	_, err = NewGridStrategy(cfg, 0)
	assert.ErrorIs(t, err, model.ErrInvalidSeries)
}
