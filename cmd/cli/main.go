package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"grid-backtest/internal/logging"

	"github.com/joho/godotenv"
)

var log = logging.For("cli")

// errUsage marks bad flags or arguments; main exits 2 for it and 1 for anything else.
var errUsage = errors.New("usage error")

func main() {
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "backtest":
		err = cmdBacktest(ctx, os.Args[2:])
	case "optimize":
		err = cmdOptimize(ctx, os.Args[2:])
	case "fetch":
		err = cmdFetch(ctx, os.Args[2:])
	case "rank":
		err = cmdRank(ctx, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest --code 000001 --up 0.05 --down 0.05 [--config examples/config.yaml] [--out reports]")
	fmt.Println("  cli optimize --code 000001 --min-up 0.01 --max-up 0.1 --min-down 0.01 --max-down 0.1 --step 0.001")
	fmt.Println("  cli fetch --code 600000 --market SH --frequency d --adjust f [--csv bars.csv]")
	fmt.Println("  cli fetch --list")
	fmt.Println("  cli rank [--symbols 000001.SZ,600000.SH]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - history comes from the Zhitu API (ZHITU_TOKEN) unless --file points at a CSV/JSON bar file")
	fmt.Println("  - fetched bars are cached under CACHE_DIR (default ./data/cache) for CACHE_TTL (default 24h)")
	fmt.Println("  - dates accept 2006-01-02 or 20060102; the default window is the last 365 days")
	fmt.Println("  - optimize writes <code>_<timestamp>_results.json to the output directory")
}
