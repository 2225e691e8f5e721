package analysis

import (
	"fmt"
	"math"

	"grid-backtest/internal/backtest"
	"grid-backtest/internal/model"

	"github.com/montanaflynn/stats"
)

const DefaultPeriodsPerYear = 252

// Report is the performance summary of one simulation.
// Returns and drawdown are fractions (0.05 = 5%); MaxDrawdown is <= 0.
type Report struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	BuyAndHoldReturn float64 `json:"buy_and_hold_return"`
	ExcessReturn     float64 `json:"excess_return"`

	TradeCount     int     `json:"trade_count"`
	BuyCount       int     `json:"buy_count"`
	SellCount      int     `json:"sell_count"`
	FinalGridLevel int     `json:"final_grid_level"`
	FinalValue     float64 `json:"final_value"`
}

// Calculator turns a backtest result into a Report. The zero value is not usable;
// build one with NewCalculator.
type Calculator struct {
	periodsPerYear float64
}

type Option func(*Calculator)

// WithPeriodsPerYear sets the Sharpe annualisation factor. Non-positive values are ignored.
func WithPeriodsPerYear(n float64) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.periodsPerYear = n
		}
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{periodsPerYear: DefaultPeriodsPerYear}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) PeriodsPerYear() float64 { return c.periodsPerYear }

// Compute derives all metrics. It has no side effects and returns the same Report for the
// same inputs.
func (c *Calculator) Compute(result *backtest.Result, series model.PriceSeries) (Report, error) {
	if series.Len() < 2 {
		return Report{}, fmt.Errorf("%w: need at least 2 bars, got %d", model.ErrEmptySeries, series.Len())
	}
	if result == nil || len(result.Equity) < 2 {
		return Report{}, fmt.Errorf("%w: equity curve has fewer than 2 points", model.ErrInsufficientData)
	}
	initial := result.Config.InitialCash
	if !(initial > 0) {
		return Report{}, fmt.Errorf("%w: initial_cash must be > 0, got %v", model.ErrInvalidConfig, initial)
	}

	values := result.Values()
	final := result.FinalValue()

	r := Report{
		TotalReturn: final/initial - 1,
		MaxDrawdown: MaxDrawdown(values),
		SharpeRatio: SharpeRatio(values, c.periodsPerYear),
		TradeCount:  len(result.Trades),
		BuyCount:    result.BuyCount(),
		SellCount:   result.SellCount(),
		FinalValue:  final,
	}
	if n := len(result.Trades); n > 0 {
		r.FinalGridLevel = result.Trades[n-1].GridLevel
	}

	days := series.Span().Hours() / 24
	r.AnnualizedReturn = AnnualizedReturn(r.TotalReturn, days)

	r.BuyAndHoldReturn = series.Last().Close/series.First().Close - 1
	r.ExcessReturn = r.TotalReturn - r.BuyAndHoldReturn

	if err := r.checkFinite(); err != nil {
		return Report{}, err
	}
	return r, nil
}

func (r Report) checkFinite() error {
	fields := map[string]float64{
		"total_return":        r.TotalReturn,
		"annualized_return":   r.AnnualizedReturn,
		"max_drawdown":        r.MaxDrawdown,
		"sharpe_ratio":        r.SharpeRatio,
		"buy_and_hold_return": r.BuyAndHoldReturn,
		"excess_return":       r.ExcessReturn,
		"final_value":         r.FinalValue,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", model.ErrComputation, name, v)
		}
	}
	return nil
}

// AnnualizedReturn compounds total over a 365-day year. A zero or negative span returns total.
func AnnualizedReturn(total, elapsedDays float64) float64 {
	if elapsedDays <= 0 {
		return total
	}
	return math.Pow(1+total, 365/elapsedDays) - 1
}

// MaxDrawdown is the most negative (value - running peak) / running peak.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// PeriodReturns are the simple returns between consecutive values.
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// SharpeRatio uses a zero risk-free rate and the sample standard deviation.
// It is 0 when there are fewer than two returns or they do not vary.
func SharpeRatio(values []float64, periodsPerYear float64) float64 {
	rets := PeriodReturns(values)
	if len(rets) < 2 {
		return 0
	}
	mean, err := stats.Mean(rets)
	if err != nil {
		return 0
	}
	sd, err := stats.StandardDeviationSample(rets)
	if err != nil || sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return mean / sd * math.Sqrt(periodsPerYear)
}
