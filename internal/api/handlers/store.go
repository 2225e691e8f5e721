package handlers

import (
	"sync"
	"time"

	"grid-backtest/internal/api/models"
)

// DefaultResultTTL is how long a backtest's trades stay retrievable by id.
const DefaultResultTTL = 30 * time.Minute

type storedResult struct {
	trades  []models.TradeRow
	expires time.Time
}

// ResultStore keeps recent trade logs in memory so clients can fetch them after the run.
type ResultStore struct {
	mu    sync.Mutex
	items map[string]storedResult
	ttl   time.Duration
	now   func() time.Time
}

func NewResultStore(ttl time.Duration) *ResultStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultStore{items: make(map[string]storedResult), ttl: ttl, now: time.Now}
}

func (s *ResultStore) Put(id string, trades []models.TradeRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	s.items[id] = storedResult{trades: trades, expires: s.now().Add(s.ttl)}
}

func (s *ResultStore) Get(id string) ([]models.TradeRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if s.now().After(item.expires) {
		delete(s.items, id)
		return nil, false
	}
	return item.trades, true
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *ResultStore) pruneLocked() {
	now := s.now()
	for id, item := range s.items {
		if now.After(item.expires) {
			delete(s.items, id)
		}
	}
}
