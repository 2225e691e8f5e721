package models

import "grid-backtest/internal/model"

// DataSourceConfig selects the price series for a request: either inline bars or a
// history query against the configured data source.
type DataSourceConfig struct {
	Bars []model.PriceBar `json:"bars,omitempty"`

	Code      string `json:"code,omitempty"`
	Market    string `json:"market,omitempty"`    // SZ or SH, default SZ
	Frequency string `json:"frequency,omitempty"` // d, w, m, y, 5, 15, 30, 60; default d
	Adjust    string `json:"adjust,omitempty"`    // n, f, b, fr, br; default n
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	// Token overrides the server's ZHITU_TOKEN for this request.
	Token string `json:"token,omitempty"`
	// Daily collapses intraday bars to one bar per date.
	Daily bool `json:"daily,omitempty"`
}

// GridParams is the request form of model.GridConfig. Zero fields take defaults.
type GridParams struct {
	UpRatio     float64 `json:"up_ratio"`
	DownRatio   float64 `json:"down_ratio"`
	InitialCash float64 `json:"initial_cash,omitempty"`
	GridLevels  int     `json:"grid_levels,omitempty"`
	LotSize     int     `json:"lot_size,omitempty"`
	// Preset names a YAML preset; the fields above override it.
	Preset string `json:"preset,omitempty"`
}

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	DataSource DataSourceConfig `json:"data_source"`
	Config     GridParams       `json:"config"`
	Options    BacktestOptions  `json:"options,omitempty"`
}

// BacktestOptions contains optional backtest parameters
type BacktestOptions struct {
	IncludeTrades  bool    `json:"include_trades,omitempty"`
	IncludeEquity  bool    `json:"include_equity,omitempty"`
	PeriodsPerYear float64 `json:"periods_per_year,omitempty"` // 0 = derived from frequency
}

// CompareBacktestRequest runs several grid configurations over the same series.
type CompareBacktestRequest struct {
	DataSource DataSourceConfig    `json:"data_source"`
	BaseConfig GridParams          `json:"base_config"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1"`
}

// BacktestVariation defines a variation to test
type BacktestVariation struct {
	Name   string     `json:"name"`
	Config GridParams `json:"config"`
}

// OptimizeRequest sweeps both trigger ratios over a range.
type OptimizeRequest struct {
	DataSource DataSourceConfig `json:"data_source"`
	Bounds     SweepBounds      `json:"bounds"`
	Options    OptimizeOptions  `json:"options,omitempty"`
}

type SweepBounds struct {
	MinUp       float64 `json:"min_up"`
	MaxUp       float64 `json:"max_up"`
	MinDown     float64 `json:"min_down"`
	MaxDown     float64 `json:"max_down"`
	Step        float64 `json:"step"`
	InitialCash float64 `json:"initial_cash,omitempty"`
	GridLevels  int     `json:"grid_levels,omitempty"`
	LotSize     int     `json:"lot_size,omitempty"`
}

type OptimizeOptions struct {
	IncludeCells   bool    `json:"include_cells,omitempty"`
	IncludeHeatmap bool    `json:"include_heatmap,omitempty"`
	Top            int     `json:"top,omitempty"` // default 10
	PeriodsPerYear float64 `json:"periods_per_year,omitempty"`
}

// RankRequest ranks watchlist symbols by how much they oscillate.
type RankRequest struct {
	Symbols   string `form:"symbols"` // comma-separated CODE.MARKET; default: watchlist
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Frequency string `form:"frequency"`
	Limit     int    `form:"limit"` // default: 10
}
