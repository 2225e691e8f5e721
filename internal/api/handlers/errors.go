package handlers

import (
	"context"
	"errors"
	"net/http"

	"grid-backtest/internal/api/models"
	"grid-backtest/internal/data"
	"grid-backtest/internal/logging"
	"grid-backtest/internal/model"

	"github.com/gin-gonic/gin"
)

var log = logging.For("handlers")

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondError maps a domain or upstream error to a status and error body.
func respondError(c *gin.Context, err error) {
	var apiErr *data.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		switch apiErr.Code {
		case "MISSING_TOKEN":
			status = http.StatusBadRequest
		case "UNAUTHORIZED":
			status = http.StatusUnauthorized
		case "NOT_FOUND":
			status = http.StatusNotFound
		case "RATE_LIMIT_EXCEEDED":
			status = http.StatusTooManyRequests
		}
		c.JSON(status, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: map[string]interface{}{
					"status_code": apiErr.StatusCode,
				},
			},
		})
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(c, http.StatusServiceUnavailable, "CANCELLED", err.Error())
		return
	}

	code := model.ErrorCode(err)
	status := http.StatusBadRequest
	switch code {
	case "EMPTY_SERIES", "INSUFFICIENT_DATA":
		status = http.StatusUnprocessableEntity
	case "COMPUTATION_FAILURE", "INTERNAL_ERROR":
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	writeError(c, status, code, err.Error())
}
