package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBetter(t *testing.T) {
	hi := Report{TotalReturn: 0.2, MaxDrawdown: -0.3}
	lo := Report{TotalReturn: 0.1, MaxDrawdown: -0.01}
	assert.True(t, Better(hi, lo))
	assert.False(t, Better(lo, hi))

	shallow := Report{TotalReturn: 0.2, MaxDrawdown: -0.1}
	assert.True(t, Better(shallow, hi))
	assert.False(t, Better(hi, shallow))

	assert.False(t, Better(hi, hi))
}

func TestRank(t *testing.T) {
	reports := []Report{
		{TotalReturn: 0.1, MaxDrawdown: -0.05},
		{TotalReturn: 0.3, MaxDrawdown: -0.2},
		{TotalReturn: 0.3, MaxDrawdown: -0.1},
		{TotalReturn: 0.1, MaxDrawdown: -0.05},
		{TotalReturn: -0.2},
	}
	assert.Equal(t, []int{2, 1, 0, 3, 4}, Rank(reports))
	assert.Empty(t, Rank(nil))
}
