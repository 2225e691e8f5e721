package analysis

import (
	"math"
	"time"

	"grid-backtest/internal/model"

	"github.com/montanaflynn/stats"
)

// SeriesSummary describes a price series independent of any grid configuration.
// It is useful for judging whether a security oscillates enough for grid trading
// before running a sweep.
type SeriesSummary struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`

	MinClose  float64 `json:"min_close"`
	MaxClose  float64 `json:"max_close"`
	MeanClose float64 `json:"mean_close"`
	P05Close  float64 `json:"p05_close"`
	P95Close  float64 `json:"p95_close"`

	// SpreadP95P05 relative to the mean close.
	RelativeSpread float64 `json:"relative_spread"`

	// Annualised standard deviation of close-to-close returns.
	Volatility       float64 `json:"volatility"`
	BuyAndHoldReturn float64 `json:"buy_and_hold_return"`
}

func Summarize(series model.PriceSeries, periodsPerYear float64) SeriesSummary {
	s := SeriesSummary{}
	if series.Len() == 0 {
		return s
	}
	closes := series.Closes()
	s.Count = len(closes)
	s.Start = series.First().Timestamp
	s.End = series.Last().Timestamp

	s.MinClose, _ = stats.Min(closes)
	s.MaxClose, _ = stats.Max(closes)
	s.MeanClose, _ = stats.Mean(closes)
	s.P05Close, _ = stats.Percentile(closes, 5)
	s.P95Close, _ = stats.Percentile(closes, 95)
	if s.MeanClose > 0 {
		s.RelativeSpread = (s.P95Close - s.P05Close) / s.MeanClose
	}

	s.BuyAndHoldReturn = closes[len(closes)-1]/closes[0] - 1

	if rets := PeriodReturns(closes); len(rets) >= 2 {
		if sd, err := stats.StandardDeviationSample(rets); err == nil && periodsPerYear > 0 {
			s.Volatility = sd * math.Sqrt(periodsPerYear)
		}
	}
	return s
}
