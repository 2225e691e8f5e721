package models

import (
	"time"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/report"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status"`
	Summary BacktestSummary `json:"summary"`
	Trades  []TradeRow      `json:"trades,omitempty"`
	Equity  []EquityRow     `json:"equity,omitempty"`
}

// BacktestSummary contains aggregated backtest results
type BacktestSummary struct {
	Config         GridParams      `json:"config"`
	Metrics        analysis.Report `json:"metrics"`
	FinalCash      string          `json:"final_cash"`
	FinalShares    string          `json:"final_shares"`
	SkippedBuys    int             `json:"skipped_buys"`
	SkippedSells   int             `json:"skipped_sells"`
	TotalBars      int             `json:"total_bars"`
	BacktestWindow TimeWindow      `json:"backtest_window"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TradeRow is one executed trade. Money and share amounts are decimal strings.
type TradeRow struct {
	Index         int       `json:"index"`
	Timestamp     time.Time `json:"timestamp"`
	Side          string    `json:"side"`
	Price         string    `json:"price"`
	Shares        string    `json:"shares"`
	CashBefore    string    `json:"cash_before"`
	CashAfter     string    `json:"cash_after"`
	PositionAfter string    `json:"position_after"`
	GridLevel     int       `json:"grid_level"`
	TotalValue    string    `json:"total_value"`
	Reason        string    `json:"reason,omitempty"`
}

type EquityRow struct {
	Timestamp  time.Time `json:"timestamp"`
	Price      float64   `json:"price"`
	TotalValue float64   `json:"total_value"`
}

// TradesResponse is returned by GET /api/v1/backtest/:id/trades
type TradesResponse struct {
	ID     string     `json:"id"`
	Count  int        `json:"count"`
	Trades []TradeRow `json:"trades"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string           `json:"name"`
	Summary *BacktestSummary `json:"summary,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// OptimizeResponse carries the best cell and, on request, the full grid.
type OptimizeResponse struct {
	ID             string                 `json:"id"`
	Status         string                 `json:"status"` // "complete" or "partial"
	Found          bool                   `json:"found"`
	BestParameters *report.BestParameters `json:"best_parameters"`
	BestMetrics    *analysis.Report       `json:"best_metrics"`
	Series         analysis.SeriesSummary `json:"series"`
	Top            []report.CellRecord    `json:"top"`
	Cells          []report.CellRecord    `json:"cells,omitempty"`
	Heatmap        *report.Heatmap        `json:"heatmap,omitempty"`
	Total          int                    `json:"total"`
	Evaluated      int                    `json:"evaluated"`
	Failed         int                    `json:"failed"`
	ElapsedMS      float64                `json:"elapsed_ms"`
}

// RankResponse represents the response from ranking symbols
type RankResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked symbol
type Ranking struct {
	Rank           int     `json:"rank"`
	Symbol         string  `json:"symbol"`
	Count          int     `json:"count"`
	RelativeSpread float64 `json:"relative_spread"`
	Volatility     float64 `json:"volatility"`
	MinClose       float64 `json:"min_close"`
	MaxClose       float64 `json:"max_close"`
	BuyAndHold     float64 `json:"buy_and_hold_return"`
	Error          string  `json:"error,omitempty"`
}

// PresetInfo represents a grid preset file
type PresetInfo struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Params GridParams `json:"params"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// FrequencyInfo describes one supported bar interval
type FrequencyInfo struct {
	Code           string  `json:"code"`
	Label          string  `json:"label"`
	Intraday       bool    `json:"intraday"`
	PeriodsPerYear float64 `json:"periods_per_year"`
}

// SymbolInfo represents one watchlist entry
type SymbolInfo struct {
	Code   string `json:"code"`
	Market string `json:"market"`
	Name   string `json:"name,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
