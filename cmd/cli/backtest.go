package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/backtest"
	"grid-backtest/internal/config"
	"grid-backtest/internal/data"
)

func cmdBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	var cf commonFlags
	cf.register(fs)
	up := fs.Float64("up", 0, "Sell trigger: rise from the last trade price, e.g. 0.05")
	down := fs.Float64("down", 0, "Buy trigger: fall from the last trade price, e.g. 0.05")
	trades := fs.Bool("trades", false, "Write trades and equity CSVs to the output directory")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cf.strategy.UpRatio, cf.strategy.DownRatio = *up, *down

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateStrategy(); err != nil {
		return fmt.Errorf("%w: %v (set --up and --down or strategy in --config)", errUsage, err)
	}

	series, q, err := loadSeries(ctx, cfg, cf.source)
	if err != nil {
		return err
	}

	res, err := backtest.New().Run(series, cfg.Strategy)
	if err != nil {
		return err
	}
	calc := analysis.NewCalculator(analysis.WithPeriodsPerYear(cfg.PeriodsPerYear()))
	m, err := calc.Compute(res, series)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %d bars  %s .. %s\n", q.Symbol(), series.Len(),
		series.First().Timestamp.Format("2006-01-02"), series.Last().Timestamp.Format("2006-01-02"))
	fmt.Printf("config     up=%s down=%s cash=%.2f levels=%d lot=%d\n",
		pct(cfg.Strategy.UpRatio), pct(cfg.Strategy.DownRatio), cfg.Strategy.InitialCash, cfg.Strategy.GridLevels, cfg.Strategy.LotSize)
	printReport(m)
	fmt.Printf("final      cash=%s shares=%s skipped buys=%d sells=%d\n",
		res.FinalCash.StringFixed(2), res.FinalShares.String(), res.SkippedBuys, res.SkippedSells)

	if *trades || cfg.Output.TradeCSV {
		if err := writeRunCSVs(cfg, q, res); err != nil {
			return err
		}
	}
	return nil
}

func printReport(m analysis.Report) {
	fmt.Printf("return     total=%s annualized=%s buy&hold=%s excess=%s\n",
		pct(m.TotalReturn), pct(m.AnnualizedReturn), pct(m.BuyAndHoldReturn), pct(m.ExcessReturn))
	fmt.Printf("risk       max drawdown=%s sharpe=%.3f\n", pct(m.MaxDrawdown), m.SharpeRatio)
	fmt.Printf("trades     %d (buy %d, sell %d) final grid level %d, final value %.2f\n",
		m.TradeCount, m.BuyCount, m.SellCount, m.FinalGridLevel, m.FinalValue)
}

func writeRunCSVs(cfg *config.Config, q data.Query, res *backtest.Result) error {
	base := fmt.Sprintf("%s_up%.4f_down%.4f", q.Code, cfg.Strategy.UpRatio, cfg.Strategy.DownRatio)
	tradesPath := filepath.Join(cfg.Output.Dir, base+"_trades.csv")
	if err := backtest.WriteTradesCSV(tradesPath, res.Trades); err != nil {
		return err
	}
	equityPath := filepath.Join(cfg.Output.Dir, base+"_equity.csv")
	if err := backtest.WriteEquityCSV(equityPath, res.Equity); err != nil {
		return err
	}
	fmt.Printf("Wrote %d trades to %s\n", len(res.Trades), tradesPath)
	fmt.Printf("Wrote %d equity points to %s\n", len(res.Equity), equityPath)
	return nil
}
