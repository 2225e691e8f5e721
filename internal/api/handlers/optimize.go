package handlers

import (
	"fmt"
	"net/http"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/api/middleware"
	"grid-backtest/internal/api/models"
	"grid-backtest/internal/model"
	"grid-backtest/internal/optimizer"
	"grid-backtest/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultMaxCells caps one request's sweep size.
const DefaultMaxCells = 250000

// OptimizeHandler runs parameter sweeps.
type OptimizeHandler struct {
	series   *SeriesResolver
	metrics  *middleware.Metrics
	workers  int
	maxCells int
}

// NewOptimizeHandler creates a handler. workers < 1 means one per CPU; maxCells < 1 means
// DefaultMaxCells.
func NewOptimizeHandler(series *SeriesResolver, metrics *middleware.Metrics, workers, maxCells int) *OptimizeHandler {
	if maxCells < 1 {
		maxCells = DefaultMaxCells
	}
	return &OptimizeHandler{series: series, metrics: metrics, workers: workers, maxCells: maxCells}
}

// Optimize handles POST /api/v1/optimize
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	bounds := boundsFromRequest(req.Bounds)
	if err := bounds.Validate(); err != nil {
		respondError(c, err)
		return
	}
	if size := bounds.Size(); size > h.maxCells {
		respondError(c, fmt.Errorf("%w: sweep has %d cells, limit is %d", model.ErrInvalidRange, size, h.maxCells))
		return
	}

	series, _, err := h.series.Resolve(c.Request.Context(), req.DataSource)
	if err != nil {
		respondError(c, err)
		return
	}

	ppy := PeriodsPerYear(req.DataSource, req.Options.PeriodsPerYear)
	opt := optimizer.New(
		optimizer.WithWorkers(h.workers),
		optimizer.WithCalculator(analysis.NewCalculator(analysis.WithPeriodsPerYear(ppy))),
	)
	res, err := opt.Optimize(c.Request.Context(), series, bounds)
	if res != nil {
		h.metrics.ObserveSweep(res.Evaluated, res.Elapsed, err)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	top := req.Options.Top
	if top <= 0 {
		top = report.TopN
	}
	response := models.OptimizeResponse{
		ID:        uuid.NewString(),
		Status:    "complete",
		Found:     res.Found,
		Series:    analysis.Summarize(series, ppy),
		Top:       report.Records(res.Top(top)),
		Total:     res.Total,
		Evaluated: res.Evaluated,
		Failed:    res.Failed,
		ElapsedMS: float64(res.Elapsed.Microseconds()) / 1000,
	}
	if !res.Complete {
		response.Status = "partial"
	}
	if res.Found {
		best := res.BestMetrics
		response.BestMetrics = &best
		response.BestParameters = &report.BestParameters{
			UpRatio:     res.Best.UpRatio,
			DownRatio:   res.Best.DownRatio,
			InitialCash: res.Best.InitialCash,
			GridLevels:  res.Best.GridLevels,
			LotSize:     res.Best.LotSize,
		}
	}
	if req.Options.IncludeCells {
		response.Cells = report.Records(res.Cells)
	}
	if req.Options.IncludeHeatmap {
		hm := report.TotalReturnHeatmap(res)
		response.Heatmap = &hm
	}

	log.Info().
		Str("id", response.ID).
		Int("cells", res.Total).
		Int("failed", res.Failed).
		Bool("found", res.Found).
		Float64("elapsed_ms", response.ElapsedMS).
		Msg("optimization served")
	c.JSON(http.StatusOK, response)
}

func boundsFromRequest(b models.SweepBounds) optimizer.Bounds {
	out := optimizer.Bounds{
		MinUp:       b.MinUp,
		MaxUp:       b.MaxUp,
		MinDown:     b.MinDown,
		MaxDown:     b.MaxDown,
		Step:        b.Step,
		InitialCash: b.InitialCash,
		GridLevels:  b.GridLevels,
		LotSize:     b.LotSize,
	}
	if out.InitialCash == 0 {
		out.InitialCash = model.DefaultInitialCash
	}
	return out
}
