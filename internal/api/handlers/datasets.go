package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"grid-backtest/internal/api/models"
	"grid-backtest/internal/data"

	"github.com/gin-gonic/gin"
)

// ListFrequencies handles GET /api/v1/frequencies
func ListFrequencies(c *gin.Context) {
	freqs := make([]models.FrequencyInfo, len(data.Frequencies))
	for i, f := range data.Frequencies {
		freqs[i] = models.FrequencyInfo{
			Code:           string(f),
			Label:          f.Label(),
			Intraday:       f.Intraday(),
			PeriodsPerYear: f.PeriodsPerYear(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"frequencies": freqs})
}

// ListSymbols handles GET /api/v1/symbols. It serves the watchlist at WATCHLIST_FILE.
func ListSymbols(c *gin.Context) {
	filePath := data.DefaultWatchlistPath()
	list, err := data.LoadWatchlist(filePath)
	if err != nil {
		// A missing watchlist is an empty one.
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusOK, gin.H{"symbols": []models.SymbolInfo{}, "count": 0})
			return
		}
		writeError(c, http.StatusInternalServerError, "WATCHLIST_LOAD_ERROR", fmt.Sprintf("Failed to load watchlist: %v", err))
		return
	}

	market := c.Query("market")
	symbols := make([]models.SymbolInfo, 0, len(list.Symbols))
	for _, s := range list.Symbols {
		if market != "" && !strings.EqualFold(s.Market, market) {
			continue
		}
		symbols = append(symbols, models.SymbolInfo{Code: s.Code, Market: s.Market, Name: s.Name})
	}

	c.JSON(http.StatusOK, gin.H{
		"symbols":    symbols,
		"updated_at": list.UpdatedAt,
		"count":      len(symbols),
	})
}
