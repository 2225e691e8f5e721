// Package report turns optimizer output into files: a JSON summary of the sweep and a
// grid CSV suitable for heatmaps.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grid-backtest/internal/analysis"
	"grid-backtest/internal/model"
	"grid-backtest/internal/optimizer"
)

const DefaultDir = "reports"

// Meta identifies the data a sweep ran over.
type Meta struct {
	Code      string    `json:"code"`
	Market    string    `json:"market"`
	Frequency string    `json:"frequency"`
	Adjust    string    `json:"adjust,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Bars      int       `json:"bars"`
}

// BestParameters is the winning configuration in the flat form users read.
type BestParameters struct {
	UpRatio     float64 `json:"up_ratio"`
	DownRatio   float64 `json:"down_ratio"`
	InitialCash float64 `json:"initial_cash"`
	GridLevels  int     `json:"grid_levels"`
	LotSize     int     `json:"lot_size"`
}

// CellRecord is one grid cell. Metrics is null and Error set for a cell without data.
type CellRecord struct {
	UpRatio   float64          `json:"up_ratio"`
	DownRatio float64          `json:"down_ratio"`
	Metrics   *analysis.Report `json:"metrics"`
	ErrorCode string           `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Optimization is the JSON document written after a sweep.
type Optimization struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Meta        Meta                   `json:"meta"`
	Series      analysis.SeriesSummary `json:"series"`
	Bounds      optimizer.Bounds       `json:"bounds"`

	Found          bool             `json:"found"`
	BestParameters *BestParameters  `json:"best_parameters"`
	BestResult     *analysis.Report `json:"best_result"`
	Top            []CellRecord     `json:"top"`
	AllResults     []CellRecord     `json:"all_results"`

	Total     int     `json:"total"`
	Evaluated int     `json:"evaluated"`
	Failed    int     `json:"failed"`
	Complete  bool    `json:"complete"`
	ElapsedMS float64 `json:"elapsed_ms"`
}

// TopN is how many ranked cells the report lists separately.
const TopN = 10

func Build(runID string, meta Meta, summary analysis.SeriesSummary, res *optimizer.Result) Optimization {
	doc := Optimization{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Meta:        meta,
		Series:      summary,
		Bounds:      res.Bounds,
		Found:       res.Found,
		Top:         Records(res.Top(TopN)),
		AllResults:  Records(res.Cells),
		Total:       res.Total,
		Evaluated:   res.Evaluated,
		Failed:      res.Failed,
		Complete:    res.Complete,
		ElapsedMS:   float64(res.Elapsed.Microseconds()) / 1000,
	}
	if res.Found {
		best := res.BestMetrics
		doc.BestResult = &best
		doc.BestParameters = &BestParameters{
			UpRatio:     res.Best.UpRatio,
			DownRatio:   res.Best.DownRatio,
			InitialCash: res.Best.InitialCash,
			GridLevels:  res.Best.GridLevels,
			LotSize:     res.Best.LotSize,
		}
	}
	return doc
}

// Records converts cells to their report form in the given order.
func Records(cells []optimizer.Cell) []CellRecord {
	out := make([]CellRecord, len(cells))
	for i, c := range cells {
		out[i] = CellRecord{UpRatio: c.Pair.Up, DownRatio: c.Pair.Down, Metrics: c.Metrics}
		if c.Err != nil {
			out[i].ErrorCode = model.ErrorCode(c.Err)
			out[i].Error = c.Err.Error()
		}
	}
	return out
}

// FileName follows <code>_<timestamp>_results.json.
func FileName(code string, at time.Time) string {
	if code == "" {
		code = "series"
	}
	return fmt.Sprintf("%s_%s_results.json", code, at.Format("20060102_150405"))
}

// WriteJSON writes doc to path, creating parent directories.
func WriteJSON(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// SaveOptimization writes the report under dir and returns its path.
func SaveOptimization(dir string, doc Optimization) (string, error) {
	if dir == "" {
		dir = DefaultDir
	}
	path := filepath.Join(dir, FileName(doc.Meta.Code, doc.GeneratedAt.Local()))
	if err := WriteJSON(path, doc); err != nil {
		return "", err
	}
	return path, nil
}
