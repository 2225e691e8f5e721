package data

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"grid-backtest/internal/model"
)

// Normalize sorts bars by time, keeps the last bar for a repeated timestamp and drops bars
// whose close is missing or not positive. The input is not modified.
func Normalize(bars []model.PriceBar) []model.PriceBar {
	out := make([]model.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.IsZero() || !(b.Close > 0) || math.IsInf(b.Close, 0) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Timestamp.Equal(b.Timestamp) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// NewSeries normalizes bars and builds a series from them.
func NewSeries(bars []model.PriceBar) (model.PriceSeries, error) {
	return model.NewPriceSeries(Normalize(bars))
}

// LoadBarsJSON reads a JSON array of bars in the PriceBar field layout.
func LoadBarsJSON(path string) (model.PriceSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	var bars []model.PriceBar
	if err := json.Unmarshal(raw, &bars); err != nil {
		return model.PriceSeries{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewSeries(bars)
}

// LoadBarsCSV reads bars from a CSV file with a header row. The time column may be named
// timestamp, datetime, date or t; open/high/low/volume are optional.
func LoadBarsCSV(path string) (model.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.PriceSeries{}, err
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("read %s: %w", path, err)
	}
	return NewSeries(bars)
}

func ReadBarsCSV(r io.Reader) ([]model.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	timeCol := -1
	for _, name := range []string{"timestamp", "datetime", "date", "t"} {
		if i, ok := cols[name]; ok {
			timeCol = i
			break
		}
	}
	closeCol, ok := cols["close"]
	if !ok {
		closeCol, ok = cols["c"]
	}
	if timeCol < 0 || !ok {
		return nil, fmt.Errorf("%w: header needs a time column and a close column, got %v", model.ErrInvalidSeries, header)
	}

	var bars []model.PriceBar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := ParseTime(rec[timeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePx, err := parseNumber(rec[closeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d close: %w", line, err)
		}
		bar := model.PriceBar{Timestamp: ts, Close: closePx}
		bar.Open = optionalColumn(rec, cols, "open", closePx)
		bar.High = optionalColumn(rec, cols, "high", closePx)
		bar.Low = optionalColumn(rec, cols, "low", closePx)
		bar.Volume = optionalColumn(rec, cols, "volume", 0)
		bars = append(bars, bar)
	}
	return bars, nil
}

func optionalColumn(rec []string, cols map[string]int, name string, fallback float64) float64 {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return fallback
	}
	v, err := parseNumber(rec[i])
	if err != nil {
		return fallback
	}
	return v
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteBarsCSV writes the series in the layout LoadBarsCSV reads.
func WriteBarsCSV(path string, series model.PriceSeries) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range series.Bars() {
		row := []string{
			b.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
