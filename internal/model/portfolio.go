package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Portfolio holds the cash and share position of a single-asset, long-only account.
// All bookkeeping is in decimal so that every fill conserves cash exactly.
type Portfolio struct {
	Cash   decimal.Decimal
	Shares decimal.Decimal
}

func NewPortfolio(initialCash float64) (*Portfolio, error) {
	p := &Portfolio{
		Cash:   decimal.NewFromFloat(initialCash),
		Shares: decimal.Zero,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Portfolio) Validate() error {
	if !p.Cash.IsPositive() && !p.Shares.IsPositive() {
		return errors.New("portfolio must start with cash > 0")
	}
	if p.Cash.IsNegative() {
		return errors.New("cash must be >= 0")
	}
	if p.Shares.IsNegative() {
		return errors.New("shares must be >= 0")
	}
	return nil
}

// Fill is a requested execution at a fixed price.
type Fill struct {
	Side   Side
	Price  decimal.Decimal
	Shares decimal.Decimal
}

// FillResult captures the account before and after one fill.
type FillResult struct {
	CashBefore   decimal.Decimal
	CashAfter    decimal.Decimal
	SharesBefore decimal.Decimal
	SharesAfter  decimal.Decimal
	Notional     decimal.Decimal // Price * Shares
}

var (
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrZeroShares         = errors.New("fill below one lot")
)

// CanApply reports whether f would execute in full. There are no partial fills.
func (p *Portfolio) CanApply(f Fill) error {
	if !f.Side.Valid() {
		return errors.New("unknown side")
	}
	if !f.Price.IsPositive() {
		return errors.New("price must be > 0")
	}
	if !f.Shares.IsPositive() {
		return ErrZeroShares
	}
	switch f.Side {
	case SideBuy:
		if f.Price.Mul(f.Shares).GreaterThan(p.Cash) {
			return ErrInsufficientCash
		}
	case SideSell:
		if f.Shares.GreaterThan(p.Shares) {
			return ErrInsufficientShares
		}
	}
	return nil
}

// Apply executes f. The account is left untouched when f cannot execute in full.
func (p *Portfolio) Apply(f Fill) (FillResult, error) {
	if err := p.CanApply(f); err != nil {
		return FillResult{}, err
	}
	notional := f.Price.Mul(f.Shares)
	res := FillResult{
		CashBefore:   p.Cash,
		SharesBefore: p.Shares,
		Notional:     notional,
	}
	switch f.Side {
	case SideBuy:
		p.Cash = p.Cash.Sub(notional)
		p.Shares = p.Shares.Add(f.Shares)
	case SideSell:
		p.Cash = p.Cash.Add(notional)
		p.Shares = p.Shares.Sub(f.Shares)
	}
	res.CashAfter = p.Cash
	res.SharesAfter = p.Shares
	return res, nil
}

// Value marks the position to market at price.
func (p *Portfolio) Value(price decimal.Decimal) decimal.Decimal {
	return p.Cash.Add(p.Shares.Mul(price))
}

// Snapshot returns a copy that callers may read without affecting the account.
func (p *Portfolio) Snapshot() Portfolio {
	return Portfolio{Cash: p.Cash, Shares: p.Shares}
}
