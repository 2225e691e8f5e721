package model

import (
	"fmt"
	"time"
)

// PriceBar is one OHLCV bar. Only Close drives the grid strategy.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume,omitempty"`
}

// PriceSeries is a strictly time-ordered, duplicate-free bar sequence.
// Build it with NewPriceSeries; the zero value is an empty series.
type PriceSeries struct {
	bars []PriceBar
}

// NewPriceSeries validates ordering and prices. The input slice is copied.
func NewPriceSeries(bars []PriceBar) (PriceSeries, error) {
	out := make([]PriceBar, len(bars))
	copy(out, bars)
	for i, b := range out {
		if b.Timestamp.IsZero() {
			return PriceSeries{}, fmt.Errorf("%w: bar %d has no timestamp", ErrInvalidSeries, i)
		}
		if !(b.Close > 0) {
			return PriceSeries{}, fmt.Errorf("%w: bar %d (%s) close must be > 0, got %v",
				ErrInvalidSeries, i, b.Timestamp.Format(time.DateOnly), b.Close)
		}
		if i > 0 && !b.Timestamp.After(out[i-1].Timestamp) {
			return PriceSeries{}, fmt.Errorf("%w: bar %d (%s) is not after bar %d (%s)",
				ErrInvalidSeries, i, b.Timestamp.Format(time.RFC3339), i-1, out[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return PriceSeries{bars: out}, nil
}

// MustPriceSeries is NewPriceSeries for fixtures; it panics on invalid input.
func MustPriceSeries(bars []PriceBar) PriceSeries {
	s, err := NewPriceSeries(bars)
	if err != nil {
		panic(err)
	}
	return s
}

func (s PriceSeries) Len() int { return len(s.bars) }

// At returns bar i. It panics if i is out of range, like a slice index.
func (s PriceSeries) At(i int) PriceBar { return s.bars[i] }

func (s PriceSeries) First() PriceBar { return s.bars[0] }

func (s PriceSeries) Last() PriceBar { return s.bars[len(s.bars)-1] }

// Bars returns a copy of the underlying bars.
func (s PriceSeries) Bars() []PriceBar {
	out := make([]PriceBar, len(s.bars))
	copy(out, s.bars)
	return out
}

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = b.Close
	}
	return out
}

// Span is the wall-clock distance between the first and last bar.
func (s PriceSeries) Span() time.Duration {
	if len(s.bars) < 2 {
		return 0
	}
	return s.Last().Timestamp.Sub(s.First().Timestamp)
}

// Between keeps bars whose calendar date falls in [start, end]. A zero bound is open.
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	out := make([]PriceBar, 0, len(s.bars))
	for _, b := range s.bars {
		d := dateOf(b.Timestamp)
		if !start.IsZero() && d.Before(dateOf(start)) {
			continue
		}
		if !end.IsZero() && d.After(dateOf(end)) {
			continue
		}
		out = append(out, b)
	}
	return PriceSeries{bars: out}
}

// Daily collapses intraday bars to one bar per calendar date: first open, max high,
// min low, last close, summed volume. The timestamp is the last bar of the day.
func (s PriceSeries) Daily() PriceSeries {
	out := make([]PriceBar, 0, len(s.bars))
	for _, b := range s.bars {
		n := len(out)
		if n > 0 && sameDate(out[n-1].Timestamp, b.Timestamp) {
			cur := &out[n-1]
			cur.Timestamp = b.Timestamp
			cur.Close = b.Close
			cur.Volume += b.Volume
			if b.High > cur.High {
				cur.High = b.High
			}
			if b.Low < cur.Low {
				cur.Low = b.Low
			}
			continue
		}
		out = append(out, b)
	}
	return PriceSeries{bars: out}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
