package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"grid-backtest/internal/api"
	"grid-backtest/internal/api/handlers"
	"grid-backtest/internal/data"
	"grid-backtest/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var log = logging.For("server")

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cacheDir := os.Getenv("CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "./data/cache"
	}
	cache, err := data.NewCache(envDuration("CACHE_TTL", data.DefaultCacheTTL), cacheDir)
	if err != nil {
		log.Error().Err(err).Str("dir", cacheDir).Msg("failed to open cache")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cache.RunJanitor(ctx, 10*time.Minute)

	serverToken := os.Getenv("ZHITU_TOKEN")
	baseURL := os.Getenv("ZHITU_BASE_URL")
	if serverToken == "" {
		log.Warn().Msg("ZHITU_TOKEN not set; requests must carry data_source.token or inline bars")
	}
	defaultSource := data.NewCachedSource(data.NewZhituClient(serverToken, baseURL), cache)
	sources := handlers.SourceFactory(func(token string) data.Source {
		if token == "" || token == serverToken {
			return defaultSource
		}
		// Per-request tokens share the cache; cached bars do not depend on the token.
		return data.NewCachedSource(data.NewZhituClient(token, baseURL), cache)
	})

	router := api.NewRouter(api.Options{
		Sources:       sources,
		PresetDir:     os.Getenv("PRESET_DIR"),
		WatchlistPath: os.Getenv("WATCHLIST_FILE"),
		Workers:       envInt("SWEEP_WORKERS", 0),
		MaxCells:      envInt("MAX_SWEEP_CELLS", handlers.DefaultMaxCells),
		ResultTTL:     envDuration("RESULT_TTL", handlers.DefaultResultTTL),
		StaticDir:     envOr("STATIC_DIR", "./web/dist"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("cache_dir", cacheDir).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid integer")
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring invalid duration")
		return fallback
	}
	return d
}
