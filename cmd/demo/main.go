package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/backtest"
	"grid-backtest/internal/config"
	"grid-backtest/internal/data"
	"grid-backtest/internal/model"
)

// Demo:
// - Build a synthetic oscillating price series, or load bars from --data
// - Run one grid configuration over it
// - Print the first trades and the metrics to show how the pieces fit together
func main() {
	dataPath := flag.String("data", "", "CSV or JSON bar file (default: synthetic series)")
	cfgPath := flag.String("config", "", "Path to YAML config (optional; only strategy is used)")
	bars := flag.Int("bars", 250, "Synthetic series length")
	n := flag.Int("n", 12, "Number of trades to print")
	outCSV := flag.String("out", "", "Optional path to write the trade log CSV (e.g. reports/demo_trades.csv)")
	flag.Parse()

	series, err := demoSeries(*dataPath, *bars)
	if err != nil {
		panic(err)
	}

	// Defaults (can be overridden via --config).
	cfg := model.GridConfig{UpRatio: 0.03, DownRatio: 0.03, InitialCash: model.DefaultInitialCash, GridLevels: 10, LotSize: 1}
	if *cfgPath != "" {
		loaded, err := config.LoadUnchecked(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = config.MergeStrategy(cfg, loaded.Strategy)
	}

	result, err := backtest.New().Run(series, cfg)
	if err != nil {
		panic(err)
	}
	metrics, err := analysis.NewCalculator().Compute(result, series)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %d bars, %s to %s\n", series.Len(),
		series.First().Timestamp.Format(time.DateOnly), series.Last().Timestamp.Format(time.DateOnly))
	fmt.Printf("Strategy=grid up=%.3f down=%.3f cash=%.0f levels=%d lot=%d\n\n",
		cfg.UpRatio, cfg.DownRatio, cfg.InitialCash, cfg.GridLevels, cfg.LotSize)

	for i := 0; i < min(*n, len(result.Trades)); i++ {
		t := result.Trades[i]
		fmt.Printf(
			"%s close=%8.3f  side=%-4s  shares=%6s  cash=%10s  position=%6s  level=%3d  value=%10s\n",
			t.Timestamp.Format("2006-01-02 15:04"),
			t.Price.InexactFloat64(),
			string(t.Side),
			t.Shares.String(),
			t.CashAfter.StringFixed(2),
			t.PositionAfter.String(),
			t.GridLevel,
			t.TotalValue.StringFixed(2),
		)
	}

	if *outCSV != "" {
		if err := backtest.WriteTradesCSV(*outCSV, result.Trades); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	fmt.Printf("\nDone. Trades=%d  Total return=%.2f%%  Buy&hold=%.2f%%  Max drawdown=%.2f%%\n",
		metrics.TradeCount, metrics.TotalReturn*100, metrics.BuyAndHoldReturn*100, metrics.MaxDrawdown*100)
}

// demoSeries loads path, or builds a daily sine wave around 10 with a slow upward drift.
func demoSeries(path string, bars int) (model.PriceSeries, error) {
	if path != "" {
		if strings.EqualFold(filepath.Ext(path), ".json") {
			return data.LoadBarsJSON(path)
		}
		return data.LoadBarsCSV(path)
	}
	if bars < 2 {
		return model.PriceSeries{}, errors.New("--bars must be at least 2")
	}
	start := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	out := make([]model.PriceBar, bars)
	for i := range out {
		price := 10 + 0.8*math.Sin(float64(i)/6) + 0.002*float64(i)
		out[i] = model.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     math.Round(price*1000) / 1000,
		}
	}
	return model.NewPriceSeries(out)
}
