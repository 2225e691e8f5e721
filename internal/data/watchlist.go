package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Symbol is one security on the watchlist.
type Symbol struct {
	Code   string `json:"code"`
	Market string `json:"market"`
	Name   string `json:"name,omitempty"`
}

func (s Symbol) String() string { return s.Code + "." + strings.ToUpper(s.Market) }

// ParseSymbol reads CODE or CODE.MARKET; the market defaults to SZ.
func ParseSymbol(s string) (Symbol, error) {
	s = strings.TrimSpace(s)
	code, market, found := strings.Cut(s, ".")
	if !found {
		market = "SZ"
	}
	code, market = strings.TrimSpace(code), strings.ToUpper(strings.TrimSpace(market))
	if code == "" {
		return Symbol{}, fmt.Errorf("invalid symbol %q", s)
	}
	if market != "SZ" && market != "SH" {
		return Symbol{}, fmt.Errorf("invalid market in %q: want SZ or SH", s)
	}
	return Symbol{Code: code, Market: market}, nil
}

// Watchlist is the set of securities the fetch command refreshes and the API advertises.
type Watchlist struct {
	UpdatedAt string   `json:"updated_at"` // ISO 8601 timestamp
	Symbols   []Symbol `json:"symbols"`
}

func LoadWatchlist(filePath string) (*Watchlist, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}
	var list Watchlist
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist: %w", err)
	}
	return &list, nil
}

func SaveWatchlist(list *Watchlist, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist: %w", err)
	}
	if err := os.WriteFile(filePath, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write watchlist: %w", err)
	}
	return nil
}

// Add inserts s unless a symbol with the same code and market is present.
func (w *Watchlist) Add(s Symbol) bool {
	for _, have := range w.Symbols {
		if have.Code == s.Code && strings.EqualFold(have.Market, s.Market) {
			return false
		}
	}
	w.Symbols = append(w.Symbols, s)
	return true
}

// DefaultWatchlistPath honours WATCHLIST_FILE and falls back to ./data/watchlist.json.
func DefaultWatchlistPath() string {
	if path := os.Getenv("WATCHLIST_FILE"); path != "" {
		return path
	}
	return "./data/watchlist.json"
}
