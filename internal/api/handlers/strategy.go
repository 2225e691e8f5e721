package handlers

import (
	"net/http"

	"grid-backtest/internal/api/models"
	"grid-backtest/internal/model"

	"github.com/gin-gonic/gin"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	strategies := []models.StrategyInfo{
		{
			Name: "grid",
			Description: "Ratio grid. Buys one cash unit when the close falls down_ratio below the last " +
				"trade price and sells one unit when it rises up_ratio above it.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "up_ratio",
					Type:        "float",
					Description: "Rise from the reference price that triggers a sell, in (0, 1)",
				},
				{
					Name:        "down_ratio",
					Type:        "float",
					Description: "Fall from the reference price that triggers a buy, in (0, 1)",
				},
				{
					Name:        "initial_cash",
					Type:        "float",
					Description: "Starting cash",
					Default:     float64(model.DefaultInitialCash),
				},
				{
					Name:        "grid_levels",
					Type:        "int",
					Description: "Number of equal cash units initial_cash is split into",
					Default:     model.DefaultGridLevels,
				},
				{
					Name:        "lot_size",
					Type:        "int",
					Description: "Share granularity of every fill (100 for A-share board lots)",
					Default:     model.DefaultLotSize,
				},
			},
		},
	}

	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
