package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grid-backtest/internal/config"
	"grid-backtest/internal/data"
	"grid-backtest/internal/model"
)

// commonFlags are the data, strategy and output flags shared by backtest and optimize.
// Flags left at their zero value do not override the config file.
type commonFlags struct {
	configPath string

	data     config.DataConfig
	strategy model.GridConfig
	sweep    config.SweepConfig
	outDir   string
	ppy      float64

	token   string
	noCache bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config (flags override it)")

	fs.StringVar(&f.data.Code, "code", "", "Security code, e.g. 000001")
	fs.StringVar(&f.data.Market, "market", "", "Market: SZ or SH (default SZ)")
	fs.StringVar(&f.data.Frequency, "frequency", "", "Bar interval: 5, 15, 30, 60, d, w, m, y (default d)")
	fs.StringVar(&f.data.Adjust, "adjust", "", "Price adjustment: n, f, b, fr, br (default n)")
	fs.StringVar(&f.data.Start, "start", "", "Start date (default: end minus 365 days)")
	fs.StringVar(&f.data.End, "end", "", "End date (default: today)")
	fs.StringVar(&f.data.File, "file", "", "Local CSV or JSON bar file instead of the API")
	fs.BoolVar(&f.data.Daily, "daily", false, "Collapse intraday bars to one bar per day")

	fs.Float64Var(&f.strategy.InitialCash, "initial-cash", 0, "Initial cash (default 100000)")
	fs.IntVar(&f.strategy.GridLevels, "levels", 0, "Cash units the initial cash is split into (default 10)")
	fs.IntVar(&f.strategy.LotSize, "lot", 0, "Shares per lot (default 1; 100 for A-share board lots)")

	fs.StringVar(&f.outDir, "out", "", "Output directory (default reports)")
	fs.Float64Var(&f.ppy, "periods-per-year", 0, "Sharpe annualisation factor (default: from frequency)")
	fs.StringVar(&f.token, "token", "", "Zhitu API token (default $ZHITU_TOKEN)")
	fs.BoolVar(&f.noCache, "no-cache", false, "Bypass the local bar cache")
}

func (f *commonFlags) registerSweep(fs *flag.FlagSet) {
	fs.Float64Var(&f.sweep.MinUp, "min-up", 0, "Smallest up ratio (default 0.01)")
	fs.Float64Var(&f.sweep.MaxUp, "max-up", 0, "Largest up ratio (default 0.1)")
	fs.Float64Var(&f.sweep.MinDown, "min-down", 0, "Smallest down ratio (default 0.01)")
	fs.Float64Var(&f.sweep.MaxDown, "max-down", 0, "Largest down ratio (default 0.1)")
	fs.Float64Var(&f.sweep.Step, "step", 0, "Step for both axes (default 0.001)")
	fs.IntVar(&f.sweep.Workers, "workers", 0, "Parallel evaluations (default: one per CPU)")
}

// load reads the config file when given and overlays the flags.
func (f *commonFlags) load() (*config.Config, error) {
	cfg := &config.Config{}
	if f.configPath != "" {
		loaded, err := config.LoadUnchecked(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Data = config.MergeData(cfg.Data, f.data)
	cfg.Strategy = config.MergeStrategy(cfg.Strategy, f.strategy)
	cfg.Sweep = config.MergeSweep(cfg.Sweep, f.sweep)
	if f.outDir != "" {
		cfg.Output.Dir = f.outDir
	}
	if f.ppy > 0 {
		cfg.Metrics.PeriodsPerYear = f.ppy
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, nil
}

func (f *commonFlags) source() (data.Source, error) {
	return newSource(f.token, f.noCache)
}

// newSource builds the Zhitu client, wrapped in the on-disk cache unless noCache.
func newSource(token string, noCache bool) (data.Source, error) {
	if token == "" {
		token = os.Getenv("ZHITU_TOKEN")
	}
	client := data.NewZhituClient(token, os.Getenv("ZHITU_BASE_URL"))
	if noCache {
		return client, nil
	}
	cache, err := openCache()
	if err != nil {
		return nil, err
	}
	return data.NewCachedSource(client, cache), nil
}

func openCache() (*data.Cache, error) {
	dir := os.Getenv("CACHE_DIR")
	if dir == "" {
		dir = filepath.Join("data", "cache")
	}
	ttl := data.DefaultCacheTTL
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CACHE_TTL: %w", err)
		}
		ttl = d
	}
	return data.NewCache(ttl, dir)
}

// loadSeries returns the configured bars and the query that describes them.
func loadSeries(ctx context.Context, cfg *config.Config, src func() (data.Source, error)) (model.PriceSeries, data.Query, error) {
	var (
		series model.PriceSeries
		q      data.Query
		err    error
	)
	if cfg.Data.File != "" {
		series, err = loadFile(cfg.Data.File)
		if err != nil {
			return model.PriceSeries{}, data.Query{}, err
		}
		// Files are only windowed when the user asked for it.
		if cfg.Data.Start != "" || cfg.Data.End != "" {
			start, end, err := cfg.Window(time.Now())
			if err != nil {
				return model.PriceSeries{}, data.Query{}, err
			}
			if cfg.Data.End == "" {
				end = time.Time{}
			}
			if cfg.Data.Start == "" {
				start = time.Time{}
			}
			series = series.Between(start, end)
		}
		q = data.Query{Code: cfg.Data.Code, Market: cfg.Data.Market}
		if cfg.Data.Code == "" {
			q.Code = strings.TrimSuffix(filepath.Base(cfg.Data.File), filepath.Ext(cfg.Data.File))
		}
		if freq, err := data.ParseFrequency(cfg.Data.Frequency); err == nil {
			q.Frequency = freq
		}
		if series.Len() > 0 {
			q.Start, q.End = series.First().Timestamp, series.Last().Timestamp
		}
	} else {
		q, err = cfg.Query(time.Now())
		if err != nil {
			return model.PriceSeries{}, data.Query{}, fmt.Errorf("%w: %v", errUsage, err)
		}
		source, err := src()
		if err != nil {
			return model.PriceSeries{}, data.Query{}, err
		}
		series, err = source.FetchBars(ctx, q)
		if err != nil {
			return model.PriceSeries{}, data.Query{}, err
		}
	}

	if cfg.Data.Daily {
		series = series.Daily()
	}
	log.Info().
		Str("symbol", q.Symbol()).
		Int("bars", series.Len()).
		Msg("series loaded")
	return series, q, nil
}

func loadFile(path string) (model.PriceSeries, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return data.LoadBarsJSON(path)
	}
	return data.LoadBarsCSV(path)
}

func pct(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
