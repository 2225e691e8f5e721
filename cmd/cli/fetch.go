package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"grid-backtest/internal/config"
	"grid-backtest/internal/data"
)

func cmdFetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	var cf commonFlags
	cf.register(fs)
	csvPath := fs.String("csv", "", "Also write the bars to this CSV file")
	list := fs.Bool("list", false, "List cached series and exit")
	watchlist := fs.Bool("watchlist", false, "Refresh every symbol on the watchlist ($WATCHLIST_FILE)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *list {
		cache, err := openCache()
		if err != nil {
			return err
		}
		keys, err := cache.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		fmt.Printf("%d cached series in %s (ttl %s)\n", len(keys), cache.Dir(), cache.TTL())
		return nil
	}

	if *watchlist {
		return fetchWatchlist(ctx, &cf)
	}

	cfg, err := cf.load()
	if err != nil {
		return err
	}
	if cfg.Data.File != "" {
		return fmt.Errorf("%w: fetch reads from the API; --file is not allowed", errUsage)
	}
	series, q, err := loadSeries(ctx, cfg, cf.source)
	if err != nil {
		return err
	}
	if series.Len() > 0 {
		fmt.Printf("%s %s/%s  %d bars  %s .. %s\n", q.Symbol(), q.Frequency, q.Adjust, series.Len(),
			series.First().Timestamp.Format(time.DateTime), series.Last().Timestamp.Format(time.DateTime))
	}
	if *csvPath != "" {
		if err := data.WriteBarsCSV(*csvPath, series); err != nil {
			return err
		}
		fmt.Printf("Wrote %d bars to %s\n", series.Len(), *csvPath)
	}
	return nil
}

// fetchWatchlist warms the cache for every watchlist symbol. One failing symbol does not
// stop the others; bad credentials do.
func fetchWatchlist(ctx context.Context, cf *commonFlags) error {
	path := data.DefaultWatchlistPath()
	list, err := data.LoadWatchlist(path)
	if err != nil {
		return err
	}
	src, err := cf.source()
	if err != nil {
		return err
	}

	base := config.Default()
	base.Data = config.MergeData(base.Data, cf.data)
	now := time.Now()
	failed := 0
	for _, sym := range list.Symbols {
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
			failed++
			fmt.Fprintf(os.Stderr, "%-10s error: %v\n", sym.String(), err)
			continue
		}
		fmt.Printf("%-10s %6d bars\n", sym.String(), series.Len())
	}
	fmt.Printf("refreshed %d/%d symbols from %s\n", len(list.Symbols)-failed, len(list.Symbols), path)
	return nil
}
