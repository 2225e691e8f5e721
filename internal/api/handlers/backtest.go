package handlers

import (
	"fmt"
	"net/http"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/api/middleware"
	"grid-backtest/internal/api/models"
	"grid-backtest/internal/backtest"
	"grid-backtest/internal/config"
	"grid-backtest/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	series  *SeriesResolver
	presets *PresetHandler
	results *ResultStore
	metrics *middleware.Metrics
	engine  *backtest.Engine
}

// NewBacktestHandler creates a new backtest handler. presets and metrics may be nil.
func NewBacktestHandler(series *SeriesResolver, presets *PresetHandler, results *ResultStore, metrics *middleware.Metrics) *BacktestHandler {
	if results == nil {
		results = NewResultStore(DefaultResultTTL)
	}
	return &BacktestHandler{
		series:  series,
		presets: presets,
		results: results,
		metrics: metrics,
		engine:  backtest.New(),
	}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	cfg, err := h.buildConfig(req.Config)
	if err != nil {
		respondError(c, err)
		return
	}

	series, _, err := h.series.Resolve(c.Request.Context(), req.DataSource)
	if err != nil {
		respondError(c, err)
		return
	}

	calc := analysis.NewCalculator(analysis.WithPeriodsPerYear(PeriodsPerYear(req.DataSource, req.Options.PeriodsPerYear)))
	summary, result, err := h.run(series, cfg, calc)
	h.metrics.ObserveBacktest(err)
	if err != nil {
		respondError(c, err)
		return
	}

	id := uuid.NewString()
	trades := convertTrades(result.Trades)
	h.results.Put(id, trades)

	response := models.BacktestResponse{
		ID:      id,
		Status:  "completed",
		Summary: summary,
	}
	if req.Options.IncludeTrades {
		response.Trades = trades
	}
	if req.Options.IncludeEquity {
		response.Equity = convertEquity(result.Equity)
	}
	c.JSON(http.StatusOK, response)
}

// GetTrades handles GET /api/v1/backtest/:id/trades
func (h *BacktestHandler) GetTrades(c *gin.Context) {
	id := c.Param("id")
	trades, ok := h.results.Get(id)
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "no backtest with id "+id+" (results expire after "+h.results.ttl.String()+")")
		return
	}
	c.JSON(http.StatusOK, models.TradesResponse{ID: id, Count: len(trades), Trades: trades})
}

// CompareBacktests handles POST /api/v1/backtest/compare
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	// Fetch data once
	series, _, err := h.series.Resolve(c.Request.Context(), req.DataSource)
	if err != nil {
		respondError(c, err)
		return
	}
	calc := analysis.NewCalculator(analysis.WithPeriodsPerYear(PeriodsPerYear(req.DataSource, 0)))

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, variation := range req.Variations {
		entry := models.ComparisonResult{Name: variation.Name}

		cfg, err := h.buildConfig(mergeParams(req.BaseConfig, variation.Config))
		if err == nil {
			var summary models.BacktestSummary
			summary, _, err = h.run(series, cfg, calc)
			h.metrics.ObserveBacktest(err)
			if err == nil {
				entry.Summary = &summary
			}
		}
		if err != nil {
			entry.Error = &models.ErrorDetail{Code: model.ErrorCode(err), Message: err.Error()}
		}
		comparison = append(comparison, entry)
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{
		Comparison: comparison,
	})
}

func (h *BacktestHandler) run(series model.PriceSeries, cfg model.GridConfig, calc *analysis.Calculator) (models.BacktestSummary, *backtest.Result, error) {
	result, err := h.engine.Run(series, cfg)
	if err != nil {
		return models.BacktestSummary{}, nil, err
	}
	metrics, err := calc.Compute(result, series)
	if err != nil {
		return models.BacktestSummary{}, nil, err
	}
	return models.BacktestSummary{
		Config:       paramsFromConfig(cfg),
		Metrics:      metrics,
		FinalCash:    result.FinalCash.StringFixed(2),
		FinalShares:  result.FinalShares.String(),
		SkippedBuys:  result.SkippedBuys,
		SkippedSells: result.SkippedSells,
		TotalBars:    series.Len(),
		BacktestWindow: models.TimeWindow{
			Start: series.First().Timestamp,
			End:   series.Last().Timestamp,
		},
	}, result, nil
}

// buildConfig layers defaults, then the named preset, then the request fields.
func (h *BacktestHandler) buildConfig(params models.GridParams) (model.GridConfig, error) {
	base := model.GridConfig{InitialCash: model.DefaultInitialCash}
	if params.Preset != "" {
		if h.presets == nil {
			return model.GridConfig{}, fmt.Errorf("%w: presets are not configured", model.ErrInvalidConfig)
		}
		preset, err := h.presets.Get(params.Preset)
		if err != nil {
			return model.GridConfig{}, err
		}
		base = config.MergeStrategy(base, preset)
	}
	cfg := config.MergeStrategy(base, configFromParams(params)).WithDefaults()
	if err := cfg.Validate(); err != nil {
		return model.GridConfig{}, err
	}
	return cfg, nil
}

func mergeParams(base, override models.GridParams) models.GridParams {
	merged := paramsFromConfig(config.MergeStrategy(configFromParams(base), configFromParams(override)))
	merged.Preset = base.Preset
	if override.Preset != "" {
		merged.Preset = override.Preset
	}
	return merged
}

func convertTrades(trades []backtest.Trade) []models.TradeRow {
	rows := make([]models.TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = models.TradeRow{
			Index:         t.Index,
			Timestamp:     t.Timestamp,
			Side:          string(t.Side),
			Price:         t.Price.String(),
			Shares:        t.Shares.String(),
			CashBefore:    t.CashBefore.StringFixed(2),
			CashAfter:     t.CashAfter.StringFixed(2),
			PositionAfter: t.PositionAfter.String(),
			GridLevel:     t.GridLevel,
			TotalValue:    t.TotalValue.StringFixed(2),
			Reason:        t.Reason,
		}
	}
	return rows
}

func convertEquity(points []backtest.EquityPoint) []models.EquityRow {
	rows := make([]models.EquityRow, len(points))
	for i, p := range points {
		rows[i] = models.EquityRow{Timestamp: p.Timestamp, Price: p.Price, TotalValue: p.TotalValue}
	}
	return rows
}
