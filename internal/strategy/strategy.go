package strategy

import (
	"grid-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// Context is everything a strategy may see at bar Index. It never carries later bars.
type Context struct {
	Index     int
	Bar       model.PriceBar
	Portfolio model.Portfolio
}

// Signal is a requested fill. A zero Side means hold.
type Signal struct {
	Side   model.Side
	Shares decimal.Decimal
	Reason string
}

func (s Signal) IsHold() bool { return s.Side == "" }

type Strategy interface {
	Name() string
	Decide(ctx Context) Signal
	// OnFill is called after the engine executed the signal returned for ctx.
	OnFill(ctx Context, fill model.Fill)
	// Level is the net number of grid steps taken so far, recorded on every trade.
	Level() int
}

var _ Strategy = (*GridStrategy)(nil)
