package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grid-backtest/internal/data"
	"grid-backtest/internal/model"
	"grid-backtest/internal/optimizer"

	"gopkg.in/yaml.v3"
)

// Sweep defaults: 1%..10% on both axes in steps of 0.1%.
const (
	DefaultMinRatio   = 0.01
	DefaultMaxRatio   = 0.1
	DefaultStep       = 0.001
	DefaultWindowDays = 365
	DefaultReportsDir = "reports"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Data DataConfig `yaml:"data"`

	// Optional: load grid parameters from a separate YAML (e.g. grids/conservative.yaml).
	// Fields set in Strategy override the ones from StrategyFile.
	StrategyFile string           `yaml:"strategy_file"`
	Strategy     model.GridConfig `yaml:"strategy"`

	Sweep   SweepConfig   `yaml:"sweep"`
	Metrics MetricsConfig `yaml:"metrics"`
	Output  OutputConfig  `yaml:"output"`
}

type DataConfig struct {
	Code      string `yaml:"code"`
	Market    string `yaml:"market"`
	Frequency string `yaml:"frequency"`
	Adjust    string `yaml:"adjust"`
	// Start/End accept 2006-01-02 or 20060102. Empty means the last DefaultWindowDays days.
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	// File is a local CSV or JSON bar file used instead of the API.
	File string `yaml:"file"`
	// Daily collapses intraday bars to one bar per date before running.
	Daily bool `yaml:"daily"`
}

type SweepConfig struct {
	MinUp   float64 `yaml:"min_up"`
	MaxUp   float64 `yaml:"max_up"`
	MinDown float64 `yaml:"min_down"`
	MaxDown float64 `yaml:"max_down"`
	Step    float64 `yaml:"step"`
	Workers int     `yaml:"workers"`
}

type MetricsConfig struct {
	// PeriodsPerYear overrides the value derived from data.frequency.
	PeriodsPerYear float64 `yaml:"periods_per_year"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	TradeCSV bool   `yaml:"trade_csv"`
	GridCSV  bool   `yaml:"grid_csv"`
}

// Default returns a config that only lacks a data source.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not apply defaults or validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.StrategyFile != "" {
		strategyPath := c.StrategyFile
		if !filepath.IsAbs(strategyPath) {
			// Relative to the config file first, then to the working directory.
			cand := filepath.Join(filepath.Dir(path), strategyPath)
			if _, err := os.Stat(cand); err == nil {
				strategyPath = cand
			}
		}
		preset, err := LoadPreset(strategyPath)
		if err != nil {
			return nil, err
		}
		c.Strategy = MergeStrategy(preset.Strategy, c.Strategy)
	}
	return &c, nil
}

// ApplyDefaults fills every zero field that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Data.Market == "" {
		c.Data.Market = "SZ"
	}
	if c.Data.Frequency == "" {
		c.Data.Frequency = string(data.FreqDaily)
	}
	if c.Data.Adjust == "" {
		c.Data.Adjust = string(data.AdjustNone)
	}
	if c.Strategy.InitialCash == 0 {
		c.Strategy.InitialCash = model.DefaultInitialCash
	}
	c.Strategy = c.Strategy.WithDefaults()

	if c.Sweep.MinUp == 0 {
		c.Sweep.MinUp = DefaultMinRatio
	}
	if c.Sweep.MaxUp == 0 {
		c.Sweep.MaxUp = DefaultMaxRatio
	}
	if c.Sweep.MinDown == 0 {
		c.Sweep.MinDown = DefaultMinRatio
	}
	if c.Sweep.MaxDown == 0 {
		c.Sweep.MaxDown = DefaultMaxRatio
	}
	if c.Sweep.Step == 0 {
		c.Sweep.Step = DefaultStep
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultReportsDir
	}
}

// Validate checks everything except the strategy ratios, which only a single backtest
// needs; see ValidateStrategy.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.Code == "" && c.Data.File == "" {
		return errors.New("data.code or data.file is required")
	}
	if _, err := data.ParseFrequency(c.Data.Frequency); err != nil {
		return fmt.Errorf("data.frequency: %w", err)
	}
	if _, err := data.ParseAdjust(c.Data.Adjust); err != nil {
		return fmt.Errorf("data.adjust: %w", err)
	}
	if _, _, err := c.Window(time.Now()); err != nil {
		return err
	}
	if err := c.Bounds().Validate(); err != nil {
		return fmt.Errorf("sweep config invalid: %w", err)
	}
	if c.Sweep.Workers < 0 {
		return errors.New("sweep.workers must not be negative")
	}
	if c.Metrics.PeriodsPerYear < 0 {
		return errors.New("metrics.periods_per_year must not be negative")
	}
	return nil
}

func (c *Config) ValidateStrategy() error {
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy config invalid: %w", err)
	}
	return nil
}

// Window resolves the date range. Missing ends default to now and now-365 days.
func (c *Config) Window(now time.Time) (start, end time.Time, err error) {
	end = now
	if c.Data.End != "" {
		if end, err = data.ParseTime(c.Data.End); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("data.end: %w", err)
		}
	}
	start = end.AddDate(0, 0, -DefaultWindowDays)
	if c.Data.Start != "" {
		if start, err = data.ParseTime(c.Data.Start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("data.start: %w", err)
		}
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("data.start %s is after data.end %s",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return start, end, nil
}

// Query builds the data-source request for the configured security.
func (c *Config) Query(now time.Time) (data.Query, error) {
	freq, err := data.ParseFrequency(c.Data.Frequency)
	if err != nil {
		return data.Query{}, err
	}
	adj, err := data.ParseAdjust(c.Data.Adjust)
	if err != nil {
		return data.Query{}, err
	}
	start, end, err := c.Window(now)
	if err != nil {
		return data.Query{}, err
	}
	q := data.Query{
		Code:      c.Data.Code,
		Market:    c.Data.Market,
		Frequency: freq,
		Adjust:    adj,
		Start:     start,
		End:       end,
	}
	return q.Normalized(), nil
}

func (c *Config) Bounds() optimizer.Bounds {
	return optimizer.Bounds{
		MinUp:       c.Sweep.MinUp,
		MaxUp:       c.Sweep.MaxUp,
		MinDown:     c.Sweep.MinDown,
		MaxDown:     c.Sweep.MaxDown,
		Step:        c.Sweep.Step,
		InitialCash: c.Strategy.InitialCash,
		GridLevels:  c.Strategy.GridLevels,
		LotSize:     c.Strategy.LotSize,
	}
}

// PeriodsPerYear is metrics.periods_per_year when set, otherwise derived from the frequency.
func (c *Config) PeriodsPerYear() float64 {
	if c.Metrics.PeriodsPerYear > 0 {
		return c.Metrics.PeriodsPerYear
	}
	freq, err := data.ParseFrequency(c.Data.Frequency)
	if err != nil {
		return data.FreqDaily.PeriodsPerYear()
	}
	if c.Data.Daily && freq.Intraday() {
		return data.FreqDaily.PeriodsPerYear()
	}
	return freq.PeriodsPerYear()
}

// Preset is the layout of a strategy file: a display name and grid parameters.
// The same files are listed by the API as presets.
type Preset struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Strategy    model.GridConfig `yaml:"strategy"`
}

func LoadPreset(path string) (Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Preset{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// MergeStrategy overlays non-zero fields from override onto base.
// This is used when loading a strategy file and when applying CLI flags or request fields.
func MergeStrategy(base, override model.GridConfig) model.GridConfig {
	out := base
	if override.UpRatio != 0 {
		out.UpRatio = override.UpRatio
	}
	if override.DownRatio != 0 {
		out.DownRatio = override.DownRatio
	}
	if override.InitialCash != 0 {
		out.InitialCash = override.InitialCash
	}
	if override.GridLevels != 0 {
		out.GridLevels = override.GridLevels
	}
	if override.LotSize != 0 {
		out.LotSize = override.LotSize
	}
	return out
}

// MergeSweep overlays non-zero fields from override onto base.
func MergeSweep(base, override SweepConfig) SweepConfig {
	out := base
	if override.MinUp != 0 {
		out.MinUp = override.MinUp
	}
	if override.MaxUp != 0 {
		out.MaxUp = override.MaxUp
	}
	if override.MinDown != 0 {
		out.MinDown = override.MinDown
	}
	if override.MaxDown != 0 {
		out.MaxDown = override.MaxDown
	}
	if override.Step != 0 {
		out.Step = override.Step
	}
	if override.Workers != 0 {
		out.Workers = override.Workers
	}
	return out
}

// MergeData overlays non-empty fields from override onto base.
func MergeData(base, override DataConfig) DataConfig {
	out := base
	if override.Code != "" {
		out.Code = override.Code
	}
	if override.Market != "" {
		out.Market = override.Market
	}
	if override.Frequency != "" {
		out.Frequency = override.Frequency
	}
	if override.Adjust != "" {
		out.Adjust = override.Adjust
	}
	if override.Start != "" {
		out.Start = override.Start
	}
	if override.End != "" {
		out.End = override.End
	}
	if override.File != "" {
		out.File = override.File
	}
	if override.Daily {
		out.Daily = true
	}
	return out
}
