package data

import (
	"context"

	"grid-backtest/internal/model"
)

// Source supplies a normalized, time-ordered series for a query.
type Source interface {
	FetchBars(ctx context.Context, q Query) (model.PriceSeries, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q Query) (model.PriceSeries, error)

func (f SourceFunc) FetchBars(ctx context.Context, q Query) (model.PriceSeries, error) {
	return f(ctx, q)
}
