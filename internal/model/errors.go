package model

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("%w: ...") and classify with errors.Is.
var (
	ErrInvalidConfig    = errors.New("invalid config")
	ErrInvalidRange     = errors.New("invalid range")
	ErrEmptySeries      = errors.New("empty series")
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidSeries    = errors.New("invalid series")
	ErrComputation      = errors.New("computation failure")
)

// ErrorCode maps an error to a stable code for CSV/JSON/API output.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfig):
		return "INVALID_CONFIG"
	case errors.Is(err, ErrInvalidRange):
		return "INVALID_RANGE"
	case errors.Is(err, ErrEmptySeries):
		return "EMPTY_SERIES"
	case errors.Is(err, ErrInsufficientData):
		return "INSUFFICIENT_DATA"
	case errors.Is(err, ErrInvalidSeries):
		return "INVALID_SERIES"
	case errors.Is(err, ErrComputation):
		return "COMPUTATION_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}
