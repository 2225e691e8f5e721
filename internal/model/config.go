package model

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	DefaultInitialCash = 100000
	DefaultGridLevels  = 10
	DefaultLotSize     = 1
)

// GridConfig is the parameter set for one simulation run.
// Units:
// - UpRatio/DownRatio: fraction of the reference price, in (0, 1)
// - InitialCash: currency units
// - GridLevels: number of equal cash slices InitialCash is divided into
// - LotSize: share granularity of every fill (100 for A-share board lots)
type GridConfig struct {
	UpRatio     float64 `json:"up_ratio" yaml:"up_ratio"`
	DownRatio   float64 `json:"down_ratio" yaml:"down_ratio"`
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	GridLevels  int     `json:"grid_levels" yaml:"grid_levels"`
	LotSize     int     `json:"lot_size" yaml:"lot_size"`
}

// NewGridConfig fills zero GridLevels/LotSize with defaults and validates.
func NewGridConfig(upRatio, downRatio, initialCash float64, gridLevels, lotSize int) (GridConfig, error) {
	c := GridConfig{
		UpRatio:     upRatio,
		DownRatio:   downRatio,
		InitialCash: initialCash,
		GridLevels:  gridLevels,
		LotSize:     lotSize,
	}.WithDefaults()
	if err := c.Validate(); err != nil {
		return GridConfig{}, err
	}
	return c, nil
}

func (c GridConfig) WithDefaults() GridConfig {
	if c.GridLevels == 0 {
		c.GridLevels = DefaultGridLevels
	}
	if c.LotSize == 0 {
		c.LotSize = DefaultLotSize
	}
	return c
}

func (c GridConfig) Validate() error {
	if !(c.UpRatio > 0) || c.UpRatio >= 1 || math.IsInf(c.UpRatio, 0) {
		return fmt.Errorf("%w: up_ratio must be in (0, 1), got %v", ErrInvalidConfig, c.UpRatio)
	}
	if !(c.DownRatio > 0) || c.DownRatio >= 1 || math.IsInf(c.DownRatio, 0) {
		return fmt.Errorf("%w: down_ratio must be in (0, 1), got %v", ErrInvalidConfig, c.DownRatio)
	}
	if !(c.InitialCash > 0) || math.IsInf(c.InitialCash, 0) {
		return fmt.Errorf("%w: initial_cash must be > 0, got %v", ErrInvalidConfig, c.InitialCash)
	}
	if c.GridLevels < 1 {
		return fmt.Errorf("%w: grid_levels must be >= 1, got %d", ErrInvalidConfig, c.GridLevels)
	}
	if c.LotSize < 1 {
		return fmt.Errorf("%w: lot_size must be >= 1, got %d", ErrInvalidConfig, c.LotSize)
	}
	return nil
}

// CashUnit is the cash committed by one grid step.
func (c GridConfig) CashUnit() decimal.Decimal {
	return decimal.NewFromFloat(c.InitialCash).Div(decimal.NewFromInt(int64(c.GridLevels)))
}

// UnitShares is the whole-lot share count one grid step buys or sells at price.
func (c GridConfig) UnitShares(price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	lot := decimal.NewFromInt(int64(c.LotSize))
	lots := c.CashUnit().Div(price).Div(lot).Floor()
	return lots.Mul(lot)
}
