package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"grid-backtest/internal/data"
	"grid-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_WithStrategyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "grids/base.yaml", `
strategy:
  up_ratio: 0.05
  down_ratio: 0.04
  initial_cash: 50000
  lot_size: 100
`)
	path := writeFile(t, dir, "config.yaml", `
data:
  code: "000001"
  market: sz
  frequency: 日线
  start: "2024-01-01"
  end: "20241231"
strategy_file: grids/base.yaml
strategy:
  down_ratio: 0.03
sweep:
  min_up: 0.02
  max_up: 0.04
  step: 0.01
  workers: 2
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.05, c.Strategy.UpRatio)
	assert.Equal(t, 0.03, c.Strategy.DownRatio, "inline strategy overrides the file")
	assert.Equal(t, 50000.0, c.Strategy.InitialCash)
	assert.Equal(t, 100, c.Strategy.LotSize)
	assert.Equal(t, model.DefaultGridLevels, c.Strategy.GridLevels)
	require.NoError(t, c.ValidateStrategy())

	b := c.Bounds()
	assert.Equal(t, 0.02, b.MinUp)
	assert.Equal(t, DefaultMinRatio, b.MinDown)
	assert.Equal(t, DefaultMaxRatio, b.MaxDown)
	assert.Equal(t, 50000.0, b.InitialCash)
	assert.Equal(t, 3*10, b.Size(), "step applies to both axes")

	q, err := c.Query(time.Now())
	require.NoError(t, err)
	assert.Equal(t, data.FreqDaily, q.Frequency)
	assert.Equal(t, "SZ", q.Market)
	assert.Equal(t, "2024-01-01", q.Start.Format(time.DateOnly))
	assert.Equal(t, "2024-12-31", q.End.Format(time.DateOnly))
	assert.Equal(t, DefaultReportsDir, c.Output.Dir)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "data: [")
	_, err = Load(bad)
	assert.Error(t, err)

	noSource := writeFile(t, dir, "nosource.yaml", "strategy:\n  up_ratio: 0.05\n")
	_, err = Load(noSource)
	assert.ErrorContains(t, err, "data.code")

	badRange := writeFile(t, dir, "range.yaml", "data:\n  code: \"1\"\nsweep:\n  min_up: 0.2\n  max_up: 0.1\n")
	_, err = Load(badRange)
	assert.ErrorIs(t, err, model.ErrInvalidRange)

	badFreq := writeFile(t, dir, "freq.yaml", "data:\n  code: \"1\"\n  frequency: hourly\n")
	_, err = Load(badFreq)
	assert.ErrorContains(t, err, "data.frequency")

	missingStrategy := writeFile(t, dir, "ms.yaml", "data:\n  code: \"1\"\nstrategy_file: nope.yaml\n")
	_, err = Load(missingStrategy)
	assert.Error(t, err)
}

func TestLoadUnchecked_NoDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "data:\n  code: \"600000\"\n")
	c, err := LoadUnchecked(path)
	require.NoError(t, err)
	assert.Empty(t, c.Data.Market)
	assert.Zero(t, c.Sweep.Step)
}

func TestWindow_DefaultsToLastYear(t *testing.T) {
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	c := Default()
	start, end, err := c.Window(now)
	require.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.AddDate(0, 0, -365), start)

	c.Data.Start = "2025-07-01"
	_, _, err = c.Window(now)
	assert.Error(t, err)
}

func TestValidateStrategy(t *testing.T) {
	c := Default()
	assert.ErrorIs(t, c.ValidateStrategy(), model.ErrInvalidConfig)
	c.Strategy.UpRatio, c.Strategy.DownRatio = 0.05, 0.05
	assert.NoError(t, c.ValidateStrategy())
}

func TestPeriodsPerYear(t *testing.T) {
	c := Default()
	assert.Equal(t, 252.0, c.PeriodsPerYear())

	c.Data.Frequency = "w"
	assert.Equal(t, 52.0, c.PeriodsPerYear())

	c.Data.Frequency = "60"
	assert.Equal(t, 1008.0, c.PeriodsPerYear())
	c.Data.Daily = true
	assert.Equal(t, 252.0, c.PeriodsPerYear())

	c.Metrics.PeriodsPerYear = 250
	assert.Equal(t, 250.0, c.PeriodsPerYear())
}

func TestMerge(t *testing.T) {
	s := MergeStrategy(
		model.GridConfig{UpRatio: 0.05, DownRatio: 0.05, InitialCash: 1000, GridLevels: 5, LotSize: 1},
		model.GridConfig{DownRatio: 0.02, LotSize: 100},
	)
	assert.Equal(t, model.GridConfig{UpRatio: 0.05, DownRatio: 0.02, InitialCash: 1000, GridLevels: 5, LotSize: 100}, s)

	sw := MergeSweep(SweepConfig{MinUp: 0.01, MaxUp: 0.1, Step: 0.001}, SweepConfig{Step: 0.01, Workers: 4})
	assert.Equal(t, SweepConfig{MinUp: 0.01, MaxUp: 0.1, Step: 0.01, Workers: 4}, sw)

	d := MergeData(DataConfig{Code: "1", Market: "SZ"}, DataConfig{Market: "SH", Daily: true})
	assert.Equal(t, DataConfig{Code: "1", Market: "SH", Daily: true}, d)
}

func TestLoadPreset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tight.yaml", `
name: Tight grid
description: small triggers for range-bound names
strategy:
  up_ratio: 0.02
  down_ratio: 0.015
  lot_size: 100
`)
	p, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, "Tight grid", p.Name)
	assert.Equal(t, 0.02, p.Strategy.UpRatio)
	assert.Equal(t, 0.015, p.Strategy.DownRatio)
	assert.Equal(t, 100, p.Strategy.LotSize)
	assert.Zero(t, p.Strategy.InitialCash)

	_, err = LoadPreset(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
