package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/backtest"
	"grid-backtest/internal/logging"
	"grid-backtest/internal/model"

	"golang.org/x/sync/errgroup"
)

var log = logging.For("optimizer")

// RatioPair keys one cell of the sweep grid.
type RatioPair struct {
	Up   float64 `json:"up_ratio"`
	Down float64 `json:"down_ratio"`
}

func (p RatioPair) String() string {
	return fmt.Sprintf("up=%.4f down=%.4f", p.Up, p.Down)
}

// Cell is one evaluated configuration. A failed cell has nil Metrics and a non-nil Err.
type Cell struct {
	Index   int              `json:"index"`
	Pair    RatioPair        `json:"pair"`
	Config  model.GridConfig `json:"config"`
	Metrics *analysis.Report `json:"metrics,omitempty"`
	Err     error            `json:"-"`
}

func (c Cell) Failed() bool { return c.Metrics == nil }

// Result holds every evaluated cell. Cells is in enumeration order; Grid indexes the same
// cells by ratio pair. A cancelled sweep leaves Complete false and only holds the cells that ran.
type Result struct {
	Bounds Bounds `json:"bounds"`

	Found       bool             `json:"found"`
	Best        model.GridConfig `json:"best_config"`
	BestPair    RatioPair        `json:"best_pair"`
	BestMetrics analysis.Report  `json:"best_metrics"`

	Grid  map[RatioPair]Cell `json:"-"`
	Cells []Cell             `json:"cells"`

	Total     int           `json:"total"`
	Evaluated int           `json:"evaluated"`
	Failed    int           `json:"failed"`
	Complete  bool          `json:"complete"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Top returns up to n successful cells, best first.
func (r *Result) Top(n int) []Cell {
	ok := make([]Cell, 0, len(r.Cells))
	reports := make([]analysis.Report, 0, len(r.Cells))
	for _, c := range r.Cells {
		if c.Failed() {
			continue
		}
		ok = append(ok, c)
		reports = append(reports, *c.Metrics)
	}
	order := analysis.Rank(reports)
	if n < 0 || n > len(order) {
		n = len(order)
	}
	out := make([]Cell, n)
	for i := 0; i < n; i++ {
		out[i] = ok[order[i]]
	}
	return out
}

// ProgressFunc is called after every finished cell. It may be called from several
// goroutines at once.
type ProgressFunc func(done, total int)

type Optimizer struct {
	engine   *backtest.Engine
	calc     *analysis.Calculator
	workers  int
	progress ProgressFunc
}

type Option func(*Optimizer)

// WithWorkers bounds the number of cells evaluated in parallel. Values below 1 mean NumCPU.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithCalculator(c *analysis.Calculator) Option {
	return func(o *Optimizer) {
		if c != nil {
			o.calc = c
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(o *Optimizer) { o.progress = fn }
}

func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		engine:  backtest.New(),
		calc:    analysis.NewCalculator(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Optimizer) Workers() int { return o.workers }

// Optimize evaluates every cell of bounds over series and picks the best by total return,
// then by smaller drawdown magnitude, then by enumeration order.
//
// Invalid bounds fail before any work. Cell failures are recorded in the result and never
// abort the sweep. When ctx is cancelled no new cell starts; the partial result is returned
// together with ctx.Err().
func (o *Optimizer) Optimize(ctx context.Context, series model.PriceSeries, bounds Bounds) (*Result, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	total := bounds.Size()

	// One slot per cell; each goroutine writes only its own slot.
	cells := make([]Cell, total)
	ran := make([]bool, total)

	log.Info().
		Int("cells", total).
		Int("workers", o.workers).
		Int("bars", series.Len()).
		Msg("sweep started")

	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(o.workers)

	for i, cfg := range bounds.Configs() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			cells[i] = o.evaluate(i, series, cfg)
			ran[i] = true
			o.reportProgress(int(done.Add(1)), total)
			return nil
		})
	}
	_ = g.Wait()

	res := merge(bounds, cells, ran)
	res.Elapsed = time.Since(start)

	ev := log.Info()
	if !res.Complete {
		ev = log.Warn()
	}
	ev.Int("evaluated", res.Evaluated).
		Int("failed", res.Failed).
		Bool("complete", res.Complete).
		Dur("elapsed", res.Elapsed)
	if res.Found {
		ev = ev.Str("best", res.BestPair.String()).Float64("best_return", res.BestMetrics.TotalReturn)
	}
	ev.Msg("sweep finished")

	if !res.Complete {
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (o *Optimizer) evaluate(idx int, series model.PriceSeries, cfg model.GridConfig) Cell {
	cell := Cell{
		Index:  idx,
		Pair:   RatioPair{Up: cfg.UpRatio, Down: cfg.DownRatio},
		Config: cfg,
	}
	run, err := o.engine.Run(series, cfg)
	if err != nil {
		cell.Err = err
		log.Debug().Err(err).Str("cell", cell.Pair.String()).Msg("cell failed")
		return cell
	}
	rep, err := o.calc.Compute(run, series)
	if err != nil {
		cell.Err = err
		log.Debug().Err(err).Str("cell", cell.Pair.String()).Msg("metrics failed")
		return cell
	}
	cell.Metrics = &rep
	return cell
}

func (o *Optimizer) reportProgress(done, total int) {
	if o.progress != nil {
		o.progress(done, total)
	}
	step := total / 10
	if step < 1 {
		step = 1
	}
	if done%step == 0 || done == total {
		log.Info().
			Int("done", done).
			Int("total", total).
			Float64("pct", float64(done)*100/float64(total)).
			Msg("sweep progress")
	}
}

// merge walks the slots in enumeration order so that the first of equal cells wins.
func merge(bounds Bounds, cells []Cell, ran []bool) *Result {
	res := &Result{
		Bounds: bounds,
		Grid:   make(map[RatioPair]Cell, len(cells)),
		Cells:  make([]Cell, 0, len(cells)),
		Total:  len(cells),
	}
	for i, c := range cells {
		if !ran[i] {
			continue
		}
		res.Grid[c.Pair] = c
		res.Cells = append(res.Cells, c)
		res.Evaluated++
		if c.Failed() {
			res.Failed++
			continue
		}
		if !res.Found || analysis.Better(*c.Metrics, res.BestMetrics) {
			res.Found = true
			res.Best = c.Config
			res.BestPair = c.Pair
			res.BestMetrics = *c.Metrics
		}
	}
	res.Complete = res.Evaluated == res.Total
	return res
}
