package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"grid-backtest/internal/data"
	"grid-backtest/internal/logging"

	"github.com/joho/godotenv"
)

var log = logging.For("update-watchlist")

// Used when neither --seed nor the default watchlist file exists.
var defaultSymbols = []data.Symbol{
	{Code: "000001", Market: "SZ", Name: "Ping An Bank"},
	{Code: "600000", Market: "SH", Name: "SPD Bank"},
	{Code: "510300", Market: "SH", Name: "CSI 300 ETF"},
}

func main() {
	var (
		outputPath = flag.String("output", "", "Output file path (default: $WATCHLIST_FILE or ./data/watchlist.json)")
		seedFile   = flag.String("seed", "", "Existing watchlist to start from (default: the output file)")
		days       = flag.Int("days", 7, "Days of daily bars used to check each symbol")
		add        = flag.String("add", "", "Symbols to add: CODE.MARKET[:Name],...")
		token      = flag.String("token", "", "Zhitu API token (default $ZHITU_TOKEN)")
		keep       = flag.Bool("keep-missing", false, "Keep symbols that returned no bars")
	)
	flag.Parse()

	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)

	if *outputPath == "" {
		*outputPath = data.DefaultWatchlistPath()
	}
	if *token == "" {
		*token = os.Getenv("ZHITU_TOKEN")
	}
	if *token == "" {
		log.Fatal().Msg("ZHITU_TOKEN environment variable or --token is required")
	}

	seedPath := *seedFile
	if seedPath == "" {
		seedPath = *outputPath
	}
	seed := defaultSymbols
	if list, err := data.LoadWatchlist(seedPath); err == nil {
		seed = list.Symbols
		fmt.Printf("Loaded %d symbols from %s\n", len(seed), seedPath)
	} else if *seedFile != "" {
		log.Fatal().Err(err).Str("path", seedPath).Msg("failed to load seed watchlist")
	}

	extra, err := parseAdd(*add)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid --add")
	}

	list := &data.Watchlist{}
	for _, s := range append(append([]data.Symbol{}, seed...), extra...) {
		list.Add(s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := data.NewZhituClient(*token, os.Getenv("ZHITU_BASE_URL"))
	end := time.Now()
	start := end.AddDate(0, 0, -*days)
	fmt.Printf("Checking %d symbols from %s to %s...\n", len(list.Symbols), start.Format(time.DateOnly), end.Format(time.DateOnly))

	symbols, err := verify(ctx, client, list.Symbols, start, end, *keep)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to update watchlist")
	}

	out := &data.Watchlist{UpdatedAt: time.Now().Format(time.RFC3339), Symbols: symbols}
	if err := data.SaveWatchlist(out, *outputPath); err != nil {
		log.Fatal().Err(err).Msg("failed to save watchlist")
	}
	fmt.Printf("Saved %d symbols to %s\n", len(symbols), *outputPath)
}

// verify fetches recent daily bars for each symbol. Symbols whose request fails are kept
// as they were; symbols with no bars are dropped unless keep is set.
func verify(ctx context.Context, src data.Source, symbols []data.Symbol, start, end time.Time, keep bool) ([]data.Symbol, error) {
	out := make([]data.Symbol, 0, len(symbols))
	ok := 0
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q := data.Query{
			Code:      sym.Code,
			Market:    sym.Market,
			Frequency: data.FreqDaily,
			Adjust:    data.AdjustNone,
			Start:     start,
			End:       end,
		}.Normalized()
		series, err := src.FetchBars(ctx, q)
		switch {
		case err != nil && data.IsFatal(err):
			return nil, err
		case err != nil:
			fmt.Printf("  warning: %s: %v\n", sym.String(), err)
			out = append(out, sym)
		case series.Len() == 0 && !keep:
			fmt.Printf("  dropped: %s (no bars)\n", sym.String())
		case series.Len() == 0:
			fmt.Printf("  kept: %s (no bars)\n", sym.String())
			out = append(out, sym)
		default:
			ok++
			fmt.Printf("  ok: %-10s %d bars, last close %.3f\n", sym.String(), series.Len(), series.Last().Close)
			out = append(out, sym)
		}
	}
	fmt.Printf("Verified %d/%d symbols\n", ok, len(symbols))

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Market != out[j].Market {
			return out[i].Market < out[j].Market
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// parseAdd reads CODE.MARKET[:Name] items separated by commas.
func parseAdd(raw string) ([]data.Symbol, error) {
	var out []data.Symbol
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		symbol, name, _ := strings.Cut(item, ":")
		sym, err := data.ParseSymbol(symbol)
		if err != nil {
			return nil, err
		}
		sym.Name = strings.TrimSpace(name)
		out = append(out, sym)
	}
	return out, nil
}
