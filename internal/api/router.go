// Package api assembles the HTTP server: middleware, handlers and routes.
package api

import (
	"os"
	"strings"
	"time"

	"grid-backtest/internal/api/handlers"
	"grid-backtest/internal/api/middleware"
	"grid-backtest/internal/logging"

	"github.com/gin-gonic/gin"
)

var log = logging.For("api")

type Options struct {
	// Sources builds the data source for a request; nil means only inline bars work.
	Sources handlers.SourceFactory

	PresetDir     string
	WatchlistPath string

	// Workers bounds sweep parallelism per request; < 1 means one per CPU.
	Workers   int
	MaxCells  int
	ResultTTL time.Duration

	// Metrics defaults to a fresh registry.
	Metrics *middleware.Metrics

	// StaticDir is an optional built frontend served for non-API routes.
	StaticDir string
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}

	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(opts.Metrics.Middleware())
	router.Use(middleware.ErrorHandler())

	series := handlers.NewSeriesResolver(opts.Sources)
	presetHandler := handlers.NewPresetHandler(opts.PresetDir)
	backtestHandler := handlers.NewBacktestHandler(series, presetHandler, handlers.NewResultStore(opts.ResultTTL), opts.Metrics)
	optimizeHandler := handlers.NewOptimizeHandler(series, opts.Metrics, opts.Workers, opts.MaxCells)
	strategyHandler := handlers.NewStrategyHandler()
	rankHandler := handlers.NewRankHandler(series, opts.WatchlistPath)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", opts.Metrics.Handler())

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/backtest", backtestHandler.RunBacktest)
		v1.GET("/backtest/:id/trades", backtestHandler.GetTrades)
		v1.POST("/backtest/compare", backtestHandler.CompareBacktests)

		v1.POST("/optimize", optimizeHandler.Optimize)

		v1.GET("/presets", presetHandler.ListPresets)
		v1.GET("/strategies", strategyHandler.ListStrategies)

		v1.GET("/rank", rankHandler.RankSymbols)

		v1.GET("/frequencies", handlers.ListFrequencies)
		v1.GET("/symbols", handlers.ListSymbols)
	}

	serveStatic(router, opts.StaticDir)
	return router
}

// serveStatic serves a single-page frontend; every non-API route falls back to index.html.
func serveStatic(router *gin.Engine, staticDir string) {
	if staticDir == "" {
		return
	}
	if _, err := os.Stat(staticDir); err != nil {
		log.Info().Str("dir", staticDir).Msg("static directory not found, skipping static file serving")
		return
	}
	router.Static("/assets", staticDir+"/assets")
	router.StaticFile("/favicon.ico", staticDir+"/favicon.ico")
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(404, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
			return
		}
		c.File(staticDir + "/index.html")
	})
	log.Info().Str("dir", staticDir).Msg("serving static files")
}
