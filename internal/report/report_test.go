package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/model"
	"grid-backtest/internal/optimizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sweep(t *testing.T, n int) (*optimizer.Result, model.PriceSeries) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 50 + 8*math.Sin(float64(i)/3)
		bars[i] = model.PriceBar{Timestamp: start.AddDate(0, 0, i), Close: c}
	}
	series := model.MustPriceSeries(bars)
	b := optimizer.Bounds{MinUp: 0.02, MaxUp: 0.04, MinDown: 0.02, MaxDown: 0.03, Step: 0.01, InitialCash: 10000}
	res, err := optimizer.New(optimizer.WithWorkers(2)).Optimize(context.Background(), series, b)
	require.NoError(t, err)
	return res, series
}

func TestBuildAndSave(t *testing.T) {
	res, series := sweep(t, 120)
	meta := Meta{Code: "000001", Market: "SZ", Frequency: "d", Start: series.First().Timestamp, End: series.Last().Timestamp, Bars: series.Len()}
	doc := Build("run-1", meta, analysis.Summarize(series, 252), res)

	assert.True(t, doc.Found)
	require.NotNil(t, doc.BestParameters)
	assert.Equal(t, res.Best.UpRatio, doc.BestParameters.UpRatio)
	assert.Equal(t, res.BestMetrics, *doc.BestResult)
	assert.Len(t, doc.AllResults, 6)
	assert.Len(t, doc.Top, 6)
	assert.Equal(t, res.BestPair.Up, doc.Top[0].UpRatio)

	dir := t.TempDir()
	path, err := SaveOptimization(dir, doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "000001_"))
	assert.True(t, strings.HasSuffix(path, "_results.json"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Contains(t, back, "best_parameters")
	assert.Contains(t, back, "all_results")
	assert.Equal(t, "run-1", back["run_id"])
}

func TestBuild_FailedCellsCarryErrorCode(t *testing.T) {
	one := model.MustPriceSeries([]model.PriceBar{{Timestamp: time.Now(), Close: 1}})
	b := optimizer.Bounds{MinUp: 0.02, MaxUp: 0.02, MinDown: 0.02, MaxDown: 0.03, Step: 0.01, InitialCash: 10000}
	res, err := optimizer.New().Optimize(context.Background(), one, b)
	require.NoError(t, err)

	doc := Build("run-2", Meta{}, analysis.SeriesSummary{}, res)
	assert.False(t, doc.Found)
	assert.Nil(t, doc.BestParameters)
	assert.Nil(t, doc.BestResult)
	require.Len(t, doc.AllResults, 2)
	for _, r := range doc.AllResults {
		assert.Nil(t, r.Metrics)
		assert.Equal(t, "EMPTY_SERIES", r.ErrorCode)
		assert.NotEmpty(t, r.Error)
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "600000_20240506_070809_results.json", FileName("600000", at))
	assert.Equal(t, "series_20240506_070809_results.json", FileName("", at))
}

func TestWriteGridCSV(t *testing.T) {
	res, _ := sweep(t, 90)
	path := filepath.Join(t.TempDir(), "grid.csv")
	require.NoError(t, WriteGridCSV(path, res))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 1+6)
	assert.Equal(t, "up_ratio", rows[0][0])
	assert.Equal(t, []string{"0.02", "0.02"}, rows[1][:2])
	assert.Equal(t, []string{"0.04", "0.03"}, rows[6][:2])
	for _, r := range rows[1:] {
		assert.Empty(t, r[len(r)-1])
		assert.NotEmpty(t, r[2])
	}
}

func TestWriteGridCSV_FailedCellsAreBlank(t *testing.T) {
	one := model.MustPriceSeries([]model.PriceBar{{Timestamp: time.Now(), Close: 1}})
	b := optimizer.Bounds{MinUp: 0.02, MaxUp: 0.02, MinDown: 0.02, MaxDown: 0.02, Step: 0.01, InitialCash: 10000}
	res, err := optimizer.New().Optimize(context.Background(), one, b)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grid.csv")
	require.NoError(t, WriteGridCSV(path, res))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "0.02,0.02,,,,,,,,,EMPTY_SERIES", lines[1])
}

func TestTotalReturnHeatmap(t *testing.T) {
	res, _ := sweep(t, 100)
	h := TotalReturnHeatmap(res)

	assert.Equal(t, []float64{0.02, 0.03, 0.04}, h.Up)
	assert.Equal(t, []float64{0.02, 0.03}, h.Down)
	require.Len(t, h.Values, 3)
	for i, row := range h.Values {
		require.Len(t, row, 2)
		for j, v := range row {
			require.NotNil(t, v)
			c := res.Grid[optimizer.RatioPair{Up: h.Up[i], Down: h.Down[j]}]
			assert.Equal(t, c.Metrics.TotalReturn, *v)
		}
	}
}
