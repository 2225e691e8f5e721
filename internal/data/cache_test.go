package data

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"grid-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureSeries(closes ...float64) model.PriceSeries {
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Timestamp: day(i + 1), Open: c, High: c, Low: c, Close: c}
	}
	return model.MustPriceSeries(bars)
}

func TestCache_MemoryHitAndExpiry(t *testing.T) {
	c, err := NewCache(time.Hour, "")
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok := c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", fixtureSeries(1, 2, 3)))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, got.Closes())

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	now = now.Add(2 * time.Hour)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Prune())
	assert.Zero(t, c.Len())
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	c, err := NewCache(0, "")
	require.NoError(t, err)
	require.NoError(t, c.Set("k", fixtureSeries(1, 2)))
	c.now = func() time.Time { return time.Now().AddDate(10, 0, 0) }
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCache_DiskSurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	first, err := NewCache(time.Hour, dir)
	require.NoError(t, err)
	require.NoError(t, first.Set("000001_SZ_d_n_abc", fixtureSeries(5, 6, 7)))

	second, err := NewCache(time.Hour, dir)
	require.NoError(t, err)
	got, ok := second.Get("000001_SZ_d_n_abc")
	require.True(t, ok)
	assert.Equal(t, []float64{5, 6, 7}, got.Closes())
	assert.Equal(t, 1, second.Len(), "disk hit is promoted to memory")

	keys, err := second.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_SZ_d_n_abc"}, keys)

	third, err := NewCache(time.Hour, dir)
	require.NoError(t, err)
	third.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = third.Get("000001_SZ_d_n_abc")
	assert.False(t, ok, "stale file is a miss")
}

func TestCache_ClearKeepsDisk(t *testing.T) {
	c, err := NewCache(time.Hour, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Set("a", fixtureSeries(1, 2)))
	c.Clear()
	assert.Zero(t, c.Len())
	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestCachedSource(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, q Query) (model.PriceSeries, error) {
		calls.Add(1)
		if q.Code == "bad" {
			return model.PriceSeries{}, errors.New("boom")
		}
		return fixtureSeries(1, 2, 3), nil
	})
	cache, err := NewCache(time.Hour, "")
	require.NoError(t, err)
	cs := NewCachedSource(src, cache)

	q := Query{Code: "000001", Market: "SZ", Start: day(1), End: day(3)}
	for i := 0; i < 3; i++ {
		s, err := cs.FetchBars(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, 3, s.Len())
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err = cs.FetchBars(context.Background(), Query{Code: "bad", Start: day(1), End: day(2)})
	assert.Error(t, err)
	assert.Equal(t, 1, cache.Len(), "failures are not cached")
}

func TestCachedSource_NilCachePassesThrough(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, q Query) (model.PriceSeries, error) {
		calls.Add(1)
		return fixtureSeries(1, 2), nil
	})
	cs := NewCachedSource(src, nil)
	for i := 0; i < 2; i++ {
		_, err := cs.FetchBars(context.Background(), Query{Code: "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_RunJanitorStops(t *testing.T) {
	c, err := NewCache(time.Millisecond, "")
	require.NoError(t, err)
	require.NoError(t, c.Set("k", fixtureSeries(1, 2)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
