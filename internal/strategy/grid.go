package strategy

import (
	"fmt"

	"grid-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// GridStrategy buys one grid unit after the close falls DownRatio below the reference
// price and sells one unit after it rises UpRatio above it. The reference moves to the
// fill price on every executed trade and stays put otherwise.
//
// Level counts net grid steps from the starting reference: -1 per buy, +1 per sell.
type GridStrategy struct {
	cfg       model.GridConfig
	reference float64
	level     int
}

func NewGridStrategy(cfg model.GridConfig, startPrice float64) (*GridStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !(startPrice > 0) {
		return nil, fmt.Errorf("%w: start price must be > 0, got %v", model.ErrInvalidSeries, startPrice)
	}
	return &GridStrategy{cfg: cfg, reference: startPrice}, nil
}

func (s *GridStrategy) Name() string { return "grid" }

func (s *GridStrategy) Reference() float64 { return s.reference }

func (s *GridStrategy) Level() int { return s.level }

// Delta is the fractional move of price from the current reference.
func (s *GridStrategy) Delta(price float64) float64 {
	return (price - s.reference) / s.reference
}

func (s *GridStrategy) Decide(ctx Context) Signal {
	price := ctx.Bar.Close
	delta := s.Delta(price)
	px := decimal.NewFromFloat(price)

	switch {
	case delta <= -s.cfg.DownRatio:
		return Signal{
			Side:   model.SideBuy,
			Shares: s.cfg.UnitShares(px),
			Reason: fmt.Sprintf("down %.4f <= -%.4f", delta, s.cfg.DownRatio),
		}
	case delta >= s.cfg.UpRatio && ctx.Portfolio.Shares.IsPositive():
		shares := decimal.Min(s.cfg.UnitShares(px), ctx.Portfolio.Shares)
		return Signal{
			Side:   model.SideSell,
			Shares: shares,
			Reason: fmt.Sprintf("up %.4f >= %.4f", delta, s.cfg.UpRatio),
		}
	}
	return Signal{}
}

func (s *GridStrategy) OnFill(ctx Context, fill model.Fill) {
	s.reference = ctx.Bar.Close
	switch fill.Side {
	case model.SideBuy:
		s.level--
	case model.SideSell:
		s.level++
	}
}
