package handlers

import (
	"context"
	"fmt"
	"time"

	"grid-backtest/internal/api/models"
	"grid-backtest/internal/data"
	"grid-backtest/internal/model"
)

// DefaultWindow is the history length requested when a request gives no start date.
const DefaultWindow = 365 * 24 * time.Hour

// SourceFactory returns the data source to use for a request. token is the per-request
// token override and may be empty.
type SourceFactory func(token string) data.Source

// SeriesResolver turns a request's data_source block into a price series.
type SeriesResolver struct {
	sources SourceFactory
	now     func() time.Time
}

func NewSeriesResolver(sources SourceFactory) *SeriesResolver {
	return &SeriesResolver{sources: sources, now: time.Now}
}

// Resolve uses inline bars when present, otherwise queries the data source.
func (r *SeriesResolver) Resolve(ctx context.Context, ds models.DataSourceConfig) (model.PriceSeries, data.Query, error) {
	if len(ds.Bars) > 0 {
		series, err := data.NewSeries(ds.Bars)
		if err != nil {
			return model.PriceSeries{}, data.Query{}, err
		}
		q := data.Query{Code: ds.Code, Market: ds.Market}
		if series.Len() > 0 {
			q.Start, q.End = series.First().Timestamp, series.Last().Timestamp
		}
		if ds.Daily {
			series = series.Daily()
		}
		return series, q, nil
	}

	q, err := r.Query(ds)
	if err != nil {
		return model.PriceSeries{}, data.Query{}, err
	}
	if r.sources == nil {
		return model.PriceSeries{}, q, fmt.Errorf("%w: no data source configured", model.ErrInvalidConfig)
	}
	series, err := r.sources(ds.Token).FetchBars(ctx, q)
	if err != nil {
		return model.PriceSeries{}, q, err
	}
	if ds.Daily {
		series = series.Daily()
	}
	return series, q, nil
}

// Query validates the query fields of ds and fills the default window.
func (r *SeriesResolver) Query(ds models.DataSourceConfig) (data.Query, error) {
	if ds.Code == "" {
		return data.Query{}, fmt.Errorf("%w: data_source needs bars or a code", model.ErrInvalidConfig)
	}
	q := data.Query{Code: ds.Code, Market: ds.Market}
	if ds.Frequency != "" {
		freq, err := data.ParseFrequency(ds.Frequency)
		if err != nil {
			return data.Query{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
		q.Frequency = freq
	}
	if ds.Adjust != "" {
		adj, err := data.ParseAdjust(ds.Adjust)
		if err != nil {
			return data.Query{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
		}
		q.Adjust = adj
	}

	q.End = r.now()
	if ds.EndDate != "" {
		end, err := data.ParseTime(ds.EndDate)
		if err != nil {
			return data.Query{}, fmt.Errorf("%w: end_date: %v", model.ErrInvalidConfig, err)
		}
		q.End = end
	}
	q.Start = q.End.Add(-DefaultWindow)
	if ds.StartDate != "" {
		start, err := data.ParseTime(ds.StartDate)
		if err != nil {
			return data.Query{}, fmt.Errorf("%w: start_date: %v", model.ErrInvalidConfig, err)
		}
		q.Start = start
	}

	q = q.Normalized()
	if err := q.Validate(); err != nil {
		return data.Query{}, fmt.Errorf("%w: %v", model.ErrInvalidConfig, err)
	}
	return q, nil
}

// PeriodsPerYear is override when positive, otherwise derived from the bar interval.
func PeriodsPerYear(ds models.DataSourceConfig, override float64) float64 {
	if override > 0 {
		return override
	}
	if ds.Daily || ds.Frequency == "" {
		return data.FreqDaily.PeriodsPerYear()
	}
	freq, err := data.ParseFrequency(ds.Frequency)
	if err != nil {
		return data.FreqDaily.PeriodsPerYear()
	}
	return freq.PeriodsPerYear()
}
