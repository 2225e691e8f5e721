package backtest

import (
	"time"

	"grid-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// Trade is one executed fill. The trade log is the primary artifact for "what happened".
type Trade struct {
	Index     int
	Timestamp time.Time
	Side      model.Side

	Price  decimal.Decimal
	Shares decimal.Decimal

	CashBefore    decimal.Decimal
	CashAfter     decimal.Decimal
	PositionAfter decimal.Decimal

	// GridLevel is the net number of grid steps after this trade (negative = net bought).
	GridLevel  int
	TotalValue decimal.Decimal
	Reason     string
}

// EquityPoint is the mark-to-market account value at one bar's close.
type EquityPoint struct {
	Index      int
	Timestamp  time.Time
	Price      float64
	Cash       float64
	Shares     float64
	TotalValue float64
}

// Result is the output of one simulation. It is not modified after Run returns.
type Result struct {
	Config model.GridConfig
	Trades []Trade
	Equity []EquityPoint

	FinalCash   decimal.Decimal
	FinalShares decimal.Decimal

	// Signals that could not fill in full (no cash, or less than one lot).
	SkippedBuys  int
	SkippedSells int
}

// FinalValue is the last equity point, i.e. cash plus shares at the last close.
func (r *Result) FinalValue() float64 {
	if len(r.Equity) == 0 {
		return r.Config.InitialCash
	}
	return r.Equity[len(r.Equity)-1].TotalValue
}

func (r *Result) BuyCount() int { return r.count(model.SideBuy) }

func (r *Result) SellCount() int { return r.count(model.SideSell) }

func (r *Result) count(side model.Side) int {
	n := 0
	for _, t := range r.Trades {
		if t.Side == side {
			n++
		}
	}
	return n
}

// Values returns the equity curve as a plain slice of total values.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Equity))
	for i, p := range r.Equity {
		out[i] = p.TotalValue
	}
	return out
}
