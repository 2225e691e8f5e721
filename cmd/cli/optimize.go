package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/optimizer"
	"grid-backtest/internal/report"

	"github.com/google/uuid"
)

func cmdOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	var cf commonFlags
	cf.register(fs)
	cf.registerSweep(fs)
	top := fs.Int("top", 5, "Ranked cells to print")
	gridCSV := fs.Bool("grid-csv", false, "Also write the full grid as CSV")
	quiet := fs.Bool("quiet", false, "No progress line")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	series, q, err := loadSeries(ctx, cfg, cf.source)
	if err != nil {
		return err
	}
	bounds := cfg.Bounds()

	opts := []optimizer.Option{
		optimizer.WithWorkers(cfg.Sweep.Workers),
		optimizer.WithCalculator(analysis.NewCalculator(analysis.WithPeriodsPerYear(cfg.PeriodsPerYear()))),
	}
	if !*quiet {
		opts = append(opts, optimizer.WithProgress(progressPrinter()))
	}
	opt := optimizer.New(opts...)

	fmt.Printf("%s  %d bars  %d cells  %d workers\n", q.Symbol(), series.Len(), bounds.Size(), opt.Workers())
	res, runErr := opt.Optimize(ctx, series, bounds)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if res == nil {
		return runErr
	}
	if runErr != nil {
		fmt.Printf("interrupted after %d/%d cells; saving partial results\n", res.Evaluated, res.Total)
	}

	summary := analysis.Summarize(series, cfg.PeriodsPerYear())
	meta := report.Meta{
		Code:      q.Code,
		Market:    q.Market,
		Frequency: string(q.Frequency),
		Adjust:    string(q.Adjust),
		Start:     summary.Start,
		End:       summary.End,
		Bars:      series.Len(),
	}
	doc := report.Build(uuid.NewString(), meta, summary, res)
	path, err := report.SaveOptimization(cfg.Output.Dir, doc)
	if err != nil {
		return err
	}

	printSweep(res, *top)
	fmt.Printf("Wrote report to %s\n", path)

	if *gridCSV || cfg.Output.GridCSV {
		csvPath := strings.TrimSuffix(path, ".json") + "_grid.csv"
		if err := report.WriteGridCSV(csvPath, res); err != nil {
			return err
		}
		fmt.Printf("Wrote grid to %s\n", csvPath)
	}

	if errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func printSweep(res *optimizer.Result, top int) {
	fmt.Printf("evaluated %d/%d cells, %d failed, %.0f ms\n",
		res.Evaluated, res.Total, res.Failed, float64(res.Elapsed.Microseconds())/1000)
	if !res.Found {
		fmt.Println("no configuration produced a result")
		return
	}
	fmt.Printf("best       up=%s down=%s\n", pct(res.Best.UpRatio), pct(res.Best.DownRatio))
	printReport(res.BestMetrics)

	cells := res.Top(top)
	if len(cells) < 2 {
		return
	}
	fmt.Printf("\n%-4s %-8s %-8s %-10s %-10s %-8s %-6s\n", "rank", "up", "down", "return", "drawdown", "sharpe", "trades")
	for i, c := range cells {
		fmt.Printf("%-4d %-8s %-8s %-10s %-10s %-8.3f %-6d\n",
			i+1, pct(c.Pair.Up), pct(c.Pair.Down),
			pct(c.Metrics.TotalReturn), pct(c.Metrics.MaxDrawdown), c.Metrics.SharpeRatio, c.Metrics.TradeCount)
	}
}

// progressPrinter redraws one stderr line, at most once per whole percent.
func progressPrinter() optimizer.ProgressFunc {
	var mu sync.Mutex
	last := -1
	return func(done, total int) {
		if total == 0 {
			return
		}
		p := done * 100 / total
		mu.Lock()
		defer mu.Unlock()
		if p == last && done != total {
			return
		}
		last = p
		fmt.Fprintf(os.Stderr, "\rprogress %d/%d (%d%%)", done, total, p)
	}
}
