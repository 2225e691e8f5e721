package backtest

import (
	"errors"
	"fmt"

	"grid-backtest/internal/logging"
	"grid-backtest/internal/model"
	"grid-backtest/internal/strategy"

	"github.com/shopspring/decimal"
)

var log = logging.For("engine")

// Engine replays a grid configuration over a price series. It holds no state between runs,
// so one Engine may serve many goroutines.
type Engine struct{}

func New() *Engine { return &Engine{} }

// Run simulates cfg over series bar by bar using closes only.
func (e *Engine) Run(series model.PriceSeries, cfg model.GridConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if series.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars, got %d", model.ErrEmptySeries, series.Len())
	}

	port, err := model.NewPortfolio(cfg.InitialCash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	strat, err := strategy.NewGridStrategy(cfg, series.First().Close)
	if err != nil {
		return nil, err
	}
	return e.replay(series, cfg, port, strat)
}

// replay drives strat over every bar after the first. Signals that cannot fill in full are
// counted as skipped and never reach OnFill.
func (e *Engine) replay(series model.PriceSeries, cfg model.GridConfig, port *model.Portfolio, strat strategy.Strategy) (*Result, error) {
	res := &Result{
		Config: cfg,
		Trades: []Trade{},
		Equity: make([]EquityPoint, 0, series.Len()),
	}
	res.Equity = append(res.Equity, equityPoint(0, series.At(0), port))

	for idx := 1; idx < series.Len(); idx++ {
		bar := series.At(idx)
		ctx := strategy.Context{
			Index:     idx,
			Bar:       bar,
			Portfolio: port.Snapshot(),
		}
		sig := strat.Decide(ctx)

		if !sig.IsHold() {
			fill := model.Fill{
				Side:   sig.Side,
				Price:  decimal.NewFromFloat(bar.Close),
				Shares: sig.Shares,
			}
			fr, err := port.Apply(fill)
			switch {
			case err == nil:
				strat.OnFill(ctx, fill)
				res.Trades = append(res.Trades, Trade{
					Index:         idx,
					Timestamp:     bar.Timestamp,
					Side:          fill.Side,
					Price:         fill.Price,
					Shares:        fill.Shares,
					CashBefore:    fr.CashBefore,
					CashAfter:     fr.CashAfter,
					PositionAfter: fr.SharesAfter,
					GridLevel:     strat.Level(),
					TotalValue:    port.Value(fill.Price),
					Reason:        sig.Reason,
				})
				if ev := log.Debug(); ev.Enabled() {
					ev.Int("index", idx).
						Str("side", string(fill.Side)).
						Str("price", fill.Price.String()).
						Str("shares", fill.Shares.String()).
						Str("cash_after", fr.CashAfter.String()).
						Msg("fill")
				}
			case isSkip(err):
				if sig.Side == model.SideBuy {
					res.SkippedBuys++
				} else {
					res.SkippedSells++
				}
			default:
				return nil, fmt.Errorf("bar %d apply %s: %w", idx, fill.Side, err)
			}
		}

		res.Equity = append(res.Equity, equityPoint(idx, bar, port))
	}

	res.FinalCash = port.Cash
	res.FinalShares = port.Shares
	return res, nil
}

// isSkip reports rejections that mean "no fill this bar" rather than a broken run.
func isSkip(err error) bool {
	if errors.Is(err, model.ErrInsufficientCash) || errors.Is(err, model.ErrInsufficientShares) {
		return true
	}
	return errors.Is(err, model.ErrZeroShares)
}

func equityPoint(idx int, bar model.PriceBar, port *model.Portfolio) EquityPoint {
	px := decimal.NewFromFloat(bar.Close)
	return EquityPoint{
		Index:      idx,
		Timestamp:  bar.Timestamp,
		Price:      bar.Close,
		Cash:       port.Cash.InexactFloat64(),
		Shares:     port.Shares.InexactFloat64(),
		TotalValue: port.Value(px).InexactFloat64(),
	}
}
