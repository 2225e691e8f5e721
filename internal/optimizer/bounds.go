package optimizer

import (
	"fmt"
	"iter"
	"math"

	"grid-backtest/internal/model"
)

// Axis values live on a 1e-9 grid so that they key the result map exactly.
const ratioScale = 1e9

// MinStep is the finest sweep step; it caps each axis at about a million values.
const MinStep = 1e-6

// Bounds is the sweep range for both trigger ratios. Both ends of each axis are included.
type Bounds struct {
	MinUp   float64 `json:"min_up" yaml:"min_up"`
	MaxUp   float64 `json:"max_up" yaml:"max_up"`
	MinDown float64 `json:"min_down" yaml:"min_down"`
	MaxDown float64 `json:"max_down" yaml:"max_down"`
	Step    float64 `json:"step" yaml:"step"`

	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	GridLevels  int     `json:"grid_levels,omitempty" yaml:"grid_levels"`
	LotSize     int     `json:"lot_size,omitempty" yaml:"lot_size"`
}

func (b Bounds) Validate() error {
	for name, v := range map[string]float64{
		"min_up": b.MinUp, "max_up": b.MaxUp, "min_down": b.MinDown, "max_down": b.MaxDown,
		"step": b.Step, "initial_cash": b.InitialCash,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", model.ErrInvalidRange, name, v)
		}
	}
	if !(b.Step > 0) {
		return fmt.Errorf("%w: step must be > 0, got %v", model.ErrInvalidRange, b.Step)
	}
	if b.Step < MinStep {
		return fmt.Errorf("%w: step must be >= %v, got %v", model.ErrInvalidRange, MinStep, b.Step)
	}
	if err := checkAxis("up", b.MinUp, b.MaxUp); err != nil {
		return err
	}
	if err := checkAxis("down", b.MinDown, b.MaxDown); err != nil {
		return err
	}
	if !(b.InitialCash > 0) {
		return fmt.Errorf("%w: initial_cash must be > 0, got %v", model.ErrInvalidRange, b.InitialCash)
	}
	if b.GridLevels < 0 || b.LotSize < 0 {
		return fmt.Errorf("%w: grid_levels and lot_size must not be negative", model.ErrInvalidRange)
	}
	return nil
}

func checkAxis(name string, lo, hi float64) error {
	switch {
	case lo > hi:
		return fmt.Errorf("%w: min_%s %v > max_%s %v", model.ErrInvalidRange, name, lo, name, hi)
	case lo <= 0:
		return fmt.Errorf("%w: min_%s must be > 0, got %v", model.ErrInvalidRange, name, lo)
	case hi >= 1:
		return fmt.Errorf("%w: max_%s must be < 1, got %v", model.ErrInvalidRange, name, hi)
	case units(lo) < 1 || units(hi) >= ratioScale:
		return fmt.Errorf("%w: %s range %v..%v rounds outside (0, 1)", model.ErrInvalidRange, name, lo, hi)
	}
	return nil
}

func (b Bounds) UpValues() []float64 { return axis(b.MinUp, b.MaxUp, b.Step) }

func (b Bounds) DownValues() []float64 { return axis(b.MinDown, b.MaxDown, b.Step) }

// Size is the number of cells in the sweep. It is 0 for invalid bounds.
func (b Bounds) Size() int {
	if b.Validate() != nil {
		return 0
	}
	return axisLen(b.MinUp, b.MaxUp, b.Step) * axisLen(b.MinDown, b.MaxDown, b.Step)
}

// Configs enumerates the Cartesian product lazily, up ratio outer and down ratio inner.
// The sequence is finite and may be ranged over any number of times.
func (b Bounds) Configs() iter.Seq2[int, model.GridConfig] {
	return func(yield func(int, model.GridConfig) bool) {
		if b.Validate() != nil {
			return
		}
		ups, downs := b.UpValues(), b.DownValues()
		i := 0
		for _, up := range ups {
			for _, down := range downs {
				cfg := model.GridConfig{
					UpRatio:     up,
					DownRatio:   down,
					InitialCash: b.InitialCash,
					GridLevels:  b.GridLevels,
					LotSize:     b.LotSize,
				}.WithDefaults()
				if !yield(i, cfg) {
					return
				}
				i++
			}
		}
	}
}

// axis returns min, min+step, ... and always ends exactly at max. Bounds and step are
// rounded to the 1e-9 grid first, so values are distinct and len(axis) == axisLen.
func axis(lo, hi, step float64) []float64 {
	n := axisLen(lo, hi, step)
	if n == 0 {
		return nil
	}
	l, h, st := units(lo), units(hi), units(step)
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(l+int64(i)*st) / ratioScale
	}
	out[n-1] = float64(h) / ratioScale
	return out
}

// axisLen counts axis values without building them: ceil((max-min)/step) + 1.
func axisLen(lo, hi, step float64) int {
	l, h, st := units(lo), units(hi), units(step)
	if st < 1 || l > h {
		return 0
	}
	span := h - l
	n := span / st
	if span%st != 0 {
		n++
	}
	return int(n + 1)
}

// units converts a ratio to integer steps of 1e-9. Callers validate v first.
func units(v float64) int64 {
	return int64(math.Round(v * ratioScale))
}
