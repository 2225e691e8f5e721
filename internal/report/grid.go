package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"grid-backtest/internal/model"
	"grid-backtest/internal/optimizer"
)

// Heatmap lays the sweep out as a matrix: rows are up ratios, columns are down ratios.
// A nil value is a cell that failed or did not run.
type Heatmap struct {
	Metric string       `json:"metric"`
	Up     []float64    `json:"up"`
	Down   []float64    `json:"down"`
	Values [][]*float64 `json:"values"`
}

// TotalReturnHeatmap builds the matrix of total returns.
func TotalReturnHeatmap(res *optimizer.Result) Heatmap {
	h := Heatmap{
		Metric: "total_return",
		Up:     res.Bounds.UpValues(),
		Down:   res.Bounds.DownValues(),
	}
	h.Values = make([][]*float64, len(h.Up))
	for i, up := range h.Up {
		h.Values[i] = make([]*float64, len(h.Down))
		for j, down := range h.Down {
			c, ok := res.Grid[optimizer.RatioPair{Up: up, Down: down}]
			if !ok || c.Failed() {
				continue
			}
			v := c.Metrics.TotalReturn
			h.Values[i][j] = &v
		}
	}
	return h
}

// WriteGridCSV writes one row per evaluated cell in enumeration order. Metric columns are
// empty for a failed cell and the error column carries its code.
func WriteGridCSV(path string, res *optimizer.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"up_ratio",
		"down_ratio",
		"total_return",
		"annualized_return",
		"max_drawdown",
		"sharpe_ratio",
		"trade_count",
		"buy_and_hold_return",
		"excess_return",
		"final_value",
		"error",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range res.Cells {
		row := []string{ratio(c.Pair.Up), ratio(c.Pair.Down)}
		if c.Failed() {
			row = append(row, "", "", "", "", "", "", "", "", model.ErrorCode(c.Err))
		} else {
			m := c.Metrics
			row = append(row,
				num(m.TotalReturn),
				num(m.AnnualizedReturn),
				num(m.MaxDrawdown),
				num(m.SharpeRatio),
				strconv.Itoa(m.TradeCount),
				num(m.BuyAndHoldReturn),
				num(m.ExcessReturn),
				strconv.FormatFloat(m.FinalValue, 'f', 2, 64),
				"",
			)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func ratio(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func num(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
