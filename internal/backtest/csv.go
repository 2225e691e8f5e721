package backtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

func WriteTradesCSV(path string, trades []Trade) error {
	w, closeFn, err := createCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{
		"index",
		"timestamp",
		"side",
		"price",
		"shares",
		"cash_before",
		"cash_after",
		"position_after",
		"grid_level",
		"total_value",
		"reason",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			strconv.Itoa(t.Index),
			fmtTime(t.Timestamp),
			string(t.Side),
			t.Price.String(),
			t.Shares.String(),
			t.CashBefore.StringFixed(2),
			t.CashAfter.StringFixed(2),
			t.PositionAfter.String(),
			strconv.Itoa(t.GridLevel),
			t.TotalValue.StringFixed(2),
			t.Reason,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func WriteEquityCSV(path string, equity []EquityPoint) error {
	w, closeFn, err := createCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := w.Write([]string{"index", "timestamp", "price", "cash", "shares", "total_value"}); err != nil {
		return err
	}
	for _, p := range equity {
		row := []string{
			strconv.Itoa(p.Index),
			fmtTime(p.Timestamp),
			fmtFloat(p.Price),
			fmtFloat(p.Cash),
			fmtFloat(p.Shares),
			fmtFloat(p.TotalValue),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func createCSV(path string) (*csv.Writer, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(f), func() { f.Close() }, nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
