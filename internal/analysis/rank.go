package analysis

import (
	"math"
	"sort"
)

// Better reports whether a strictly beats b: higher total return, then the smaller
// drawdown magnitude. Equal reports are not better than each other, so callers keep
// the earlier one.
func Better(a, b Report) bool {
	if a.TotalReturn != b.TotalReturn {
		return a.TotalReturn > b.TotalReturn
	}
	return math.Abs(a.MaxDrawdown) < math.Abs(b.MaxDrawdown)
}

// Rank returns the indexes of reports ordered best first. Ties keep input order.
func Rank(reports []Report) []int {
	idx := make([]int, len(reports))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return Better(reports[idx[i]], reports[idx[j]])
	})
	return idx
}
