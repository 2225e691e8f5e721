package handlers

import (
	"testing"
	"time"

	"grid-backtest/internal/api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewResultStore(time.Minute)
	s.now = func() time.Time { return now }

	s.Put("a", []models.TradeRow{{Index: 1, Side: "BUY"}})
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Len(t, got, 1)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = s.Get("a")
	assert.False(t, ok, "expired results are gone")
	assert.Zero(t, s.Len())
}

func TestResultStore_PutPrunes(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewResultStore(0)
	s.now = func() time.Time { return now }
	assert.Equal(t, DefaultResultTTL, s.ttl)

	s.Put("old", nil)
	now = now.Add(DefaultResultTTL + time.Second)
	s.Put("new", nil)
	assert.Equal(t, 1, s.Len())
}
