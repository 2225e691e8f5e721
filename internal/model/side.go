package model

// Side is the direction of a fill.
// Keep these values stable; they are intended for CSV output.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}
