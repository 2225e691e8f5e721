package main

import (
	"context"
	"flag"
	"fmt"
	"sort"
	"strings"
	"time"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/config"
	"grid-backtest/internal/data"
)

type ranked struct {
	symbol  data.Symbol
	summary analysis.SeriesSummary
	err     error
}

// cmdRank orders securities by relative close spread, the room a grid has to trade in.
func cmdRank(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ContinueOnError)
	var cf commonFlags
	cf.register(fs)
	symbols := fs.String("symbols", "", "Comma-separated CODE.MARKET list (default: the watchlist)")
	limit := fs.Int("limit", 0, "Rows to print (default all)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	syms, err := rankSymbols(*symbols)
	if err != nil {
		return err
	}
	src, err := cf.source()
	if err != nil {
		return err
	}

	base := config.Default()
	base.Data = config.MergeData(base.Data, cf.data)
	if cf.ppy > 0 {
		base.Metrics.PeriodsPerYear = cf.ppy
	}
	now := time.Now()

	rows := make([]ranked, 0, len(syms))
	for _, sym := range syms {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cfg := *base
		cfg.Data.Code, cfg.Data.Market = sym.Code, sym.Market
		q, err := cfg.Query(now)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		series, err := src.FetchBars(ctx, q)
		if err != nil {
			if data.IsFatal(err) {
				return err
			}
			rows = append(rows, ranked{symbol: sym, err: err})
			continue
		}
		if cfg.Data.Daily {
			series = series.Daily()
		}
		rows = append(rows, ranked{symbol: sym, summary: analysis.Summarize(series, cfg.PeriodsPerYear())})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if (rows[i].err == nil) != (rows[j].err == nil) {
			return rows[i].err == nil
		}
		return rows[i].summary.RelativeSpread > rows[j].summary.RelativeSpread
	})
	if *limit > 0 && *limit < len(rows) {
		rows = rows[:*limit]
	}

	fmt.Printf("%-4s %-10s %-6s %-10s %-10s %-10s %-10s %-10s\n",
		"rank", "symbol", "bars", "spread", "vol", "min", "max", "buy&hold")
	for i, r := range rows {
		if r.err != nil {
			fmt.Printf("%-4d %-10s error: %v\n", i+1, r.symbol.String(), r.err)
			continue
		}
		s := r.summary
		fmt.Printf("%-4d %-10s %-6d %-10s %-10s %-10.3f %-10.3f %-10s\n",
			i+1, r.symbol.String(), s.Count, pct(s.RelativeSpread), pct(s.Volatility),
			s.MinClose, s.MaxClose, pct(s.BuyAndHoldReturn))
	}
	return nil
}

func rankSymbols(raw string) ([]data.Symbol, error) {
	if strings.TrimSpace(raw) == "" {
		path := data.DefaultWatchlistPath()
		list, err := data.LoadWatchlist(path)
		if err != nil {
			return nil, err
		}
		if len(list.Symbols) == 0 {
			return nil, fmt.Errorf("%w: watchlist %s is empty; pass --symbols", errUsage, path)
		}
		return list.Symbols, nil
	}
	var out []data.Symbol
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		sym, err := data.ParseSymbol(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		out = append(out, sym)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: --symbols is empty", errUsage)
	}
	return out, nil
}
