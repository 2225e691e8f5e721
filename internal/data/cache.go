package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"grid-backtest/internal/model"
)

const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	series    model.PriceSeries
	expiresAt time.Time
}

// Cache keeps fetched series in memory and, when dir is set, as CSV files on disk.
// It is created by the process that owns it and passed to whatever needs it.
// A zero or negative TTL never expires entries.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	dir   string
	now   func() time.Time
}

// NewCache creates the cache directory if dir is not empty.
func NewCache(ttl time.Duration, dir string) (*Cache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	return &Cache{
		store: make(map[string]cacheEntry),
		ttl:   ttl,
		dir:   dir,
		now:   time.Now,
	}, nil
}

func (c *Cache) Dir() string { return c.dir }

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns a live entry from memory, falling back to the disk copy.
func (c *Cache) Get(key string) (model.PriceSeries, bool) {
	if c == nil {
		return model.PriceSeries{}, false
	}
	c.mu.RLock()
	entry, ok := c.store[key]
	c.mu.RUnlock()
	if ok && !c.expired(entry.expiresAt) {
		return entry.series, true
	}
	if c.dir == "" {
		return model.PriceSeries{}, false
	}

	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return model.PriceSeries{}, false
	}
	expiresAt := c.expiry(info.ModTime())
	if c.expired(expiresAt) {
		return model.PriceSeries{}, false
	}
	series, err := LoadBarsCSV(path)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("unreadable cache file")
		return model.PriceSeries{}, false
	}

	c.mu.Lock()
	c.store[key] = cacheEntry{series: series, expiresAt: expiresAt}
	c.mu.Unlock()
	return series, true
}

// Set stores series in memory and writes the disk copy.
func (c *Cache) Set(key string, series model.PriceSeries) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry{series: series, expiresAt: c.expiry(c.now())}
	if c.dir == "" {
		return nil
	}
	return WriteBarsCSV(c.path(key), series)
}

// Keys lists cached entries, from disk when a directory is configured.
func (c *Cache) Keys() ([]string, error) {
	if c == nil {
		return nil, nil
	}
	if c.dir == "" {
		c.mu.RLock()
		defer c.mu.RUnlock()
		keys := make([]string, 0, len(c.store))
		for k, e := range c.store {
			if !c.expired(e.expiresAt) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return keys, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	keys := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear drops the in-memory entries. Disk files are left in place.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry)
}

// Prune removes expired in-memory entries and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.store {
		if c.expired(e.expiresAt) {
			delete(c.store, key)
			n++
		}
	}
	return n
}

// RunJanitor prunes expired entries every interval until ctx is done.
func (c *Cache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				log.Debug().Int("removed", n).Msg("cache pruned")
			}
		}
	}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".csv")
}

func (c *Cache) expiry(from time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return from.Add(c.ttl)
}

func (c *Cache) expired(at time.Time) bool {
	return !at.IsZero() && c.now().After(at)
}

// CachedSource serves queries from a Cache and fills it from the wrapped Source on a miss.
type CachedSource struct {
	src   Source
	cache *Cache
}

func NewCachedSource(src Source, cache *Cache) *CachedSource {
	return &CachedSource{src: src, cache: cache}
}

func (s *CachedSource) FetchBars(ctx context.Context, q Query) (model.PriceSeries, error) {
	q = q.Normalized()
	key := CacheKey(q)
	if series, ok := s.cache.Get(key); ok {
		log.Info().Str("key", key).Int("bars", series.Len()).Msg("cache hit")
		return series, nil
	}
	series, err := s.src.FetchBars(ctx, q)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if err := s.cache.Set(key, series); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return series, nil
}
