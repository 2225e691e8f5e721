package handlers

import (
	"net/http"
	"sort"
	"strings"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/api/models"
	"grid-backtest/internal/data"

	"github.com/gin-gonic/gin"
)

// RankHandler ranks securities by how much room a grid has to work: the P95-P05 close
// spread relative to the mean close.
type RankHandler struct {
	series        *SeriesResolver
	watchlistPath string
}

// NewRankHandler creates a rank handler. An empty watchlistPath means data.DefaultWatchlistPath().
func NewRankHandler(series *SeriesResolver, watchlistPath string) *RankHandler {
	if watchlistPath == "" {
		watchlistPath = data.DefaultWatchlistPath()
	}
	return &RankHandler{series: series, watchlistPath: watchlistPath}
}

// RankSymbols handles GET /api/v1/rank
func (h *RankHandler) RankSymbols(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	symbols, err := h.symbols(req.Symbols)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_SYMBOL", err.Error())
		return
	}
	if len(symbols) == 0 {
		writeError(c, http.StatusBadRequest, "SYMBOLS_REQUIRED",
			"Please specify symbols (comma-separated CODE.MARKET) or add symbols to the watchlist")
		return
	}

	rankings := make([]models.Ranking, 0, len(symbols))
	for _, sym := range symbols {
		ds := models.DataSourceConfig{
			Code:      sym.Code,
			Market:    sym.Market,
			Frequency: req.Frequency,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
		}
		series, _, err := h.series.Resolve(c.Request.Context(), ds)
		if err != nil {
			// Credentials and rate limits fail the whole request; anything else only this symbol.
			if data.IsFatal(err) {
				respondError(c, err)
				return
			}
			log.Warn().Err(err).Str("symbol", sym.String()).Msg("rank: skipping symbol")
			rankings = append(rankings, models.Ranking{Symbol: sym.String(), Error: err.Error()})
			continue
		}

		s := analysis.Summarize(series, PeriodsPerYear(ds, 0))
		rankings = append(rankings, models.Ranking{
			Symbol:         sym.String(),
			Count:          s.Count,
			RelativeSpread: s.RelativeSpread,
			Volatility:     s.Volatility,
			MinClose:       s.MinClose,
			MaxClose:       s.MaxClose,
			BuyAndHold:     s.BuyAndHoldReturn,
		})
	}

	// Failed symbols sink to the bottom.
	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if (a.Error == "") != (b.Error == "") {
			return a.Error == ""
		}
		return a.RelativeSpread > b.RelativeSpread
	})

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > len(rankings) {
		limit = len(rankings)
	}
	rankings = rankings[:limit]
	for i := range rankings {
		rankings[i].Rank = i + 1
	}

	c.JSON(http.StatusOK, models.RankResponse{Rankings: rankings})
}

func (h *RankHandler) symbols(raw string) ([]data.Symbol, error) {
	if strings.TrimSpace(raw) == "" {
		list, err := data.LoadWatchlist(h.watchlistPath)
		if err != nil {
			log.Debug().Err(err).Str("file", h.watchlistPath).Msg("no watchlist")
			return nil, nil
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
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}
