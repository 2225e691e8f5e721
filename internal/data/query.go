package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Frequency is the Zhitu bar interval code.
type Frequency string

const (
	Freq5Min    Frequency = "5"
	Freq15Min   Frequency = "15"
	Freq30Min   Frequency = "30"
	Freq60Min   Frequency = "60"
	FreqDaily   Frequency = "d"
	FreqWeekly  Frequency = "w"
	FreqMonthly Frequency = "m"
	FreqYearly  Frequency = "y"
)

// Frequencies lists every supported interval, shortest first.
var Frequencies = []Frequency{Freq5Min, Freq15Min, Freq30Min, Freq60Min, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly}

var frequencyAliases = map[string]Frequency{
	"5": Freq5Min, "5min": Freq5Min, "5分钟": Freq5Min,
	"15": Freq15Min, "15min": Freq15Min, "15分钟": Freq15Min,
	"30": Freq30Min, "30min": Freq30Min, "30分钟": Freq30Min,
	"60": Freq60Min, "60min": Freq60Min, "60分钟": Freq60Min,
	"d": FreqDaily, "day": FreqDaily, "daily": FreqDaily, "日线": FreqDaily,
	"w": FreqWeekly, "week": FreqWeekly, "weekly": FreqWeekly, "周线": FreqWeekly,
	"m": FreqMonthly, "month": FreqMonthly, "monthly": FreqMonthly, "月线": FreqMonthly,
	"y": FreqYearly, "year": FreqYearly, "yearly": FreqYearly, "年线": FreqYearly,
}

// ParseFrequency accepts API codes ("d", "15"), English names ("daily", "15min")
// and the Chinese labels used by the Zhitu docs.
func ParseFrequency(s string) (Frequency, error) {
	if f, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

func (f Frequency) Intraday() bool {
	switch f {
	case Freq5Min, Freq15Min, Freq30Min, Freq60Min:
		return true
	}
	return false
}

// PeriodsPerYear is the Sharpe annualisation factor for bars of this frequency,
// assuming 252 trading days of 4 trading hours.
func (f Frequency) PeriodsPerYear() float64 {
	switch f {
	case Freq5Min:
		return 252 * 48
	case Freq15Min:
		return 252 * 16
	case Freq30Min:
		return 252 * 8
	case Freq60Min:
		return 252 * 4
	case FreqWeekly:
		return 52
	case FreqMonthly:
		return 12
	case FreqYearly:
		return 1
	default:
		return 252
	}
}

func (f Frequency) Label() string {
	switch f {
	case Freq5Min, Freq15Min, Freq30Min, Freq60Min:
		return string(f) + "min"
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqYearly:
		return "yearly"
	}
	return string(f)
}

// Adjust is the price adjustment (复权) mode for dividends and splits.
type Adjust string

const (
	AdjustNone          Adjust = "n"
	AdjustForward       Adjust = "f"
	AdjustBackward      Adjust = "b"
	AdjustForwardRatio  Adjust = "fr"
	AdjustBackwardRatio Adjust = "br"
)

var adjustAliases = map[string]Adjust{
	"n": AdjustNone, "none": AdjustNone, "不复权": AdjustNone,
	"f": AdjustForward, "forward": AdjustForward, "前复权": AdjustForward,
	"b": AdjustBackward, "backward": AdjustBackward, "后复权": AdjustBackward,
	"fr": AdjustForwardRatio, "forward-ratio": AdjustForwardRatio, "等比前复权": AdjustForwardRatio,
	"br": AdjustBackwardRatio, "backward-ratio": AdjustBackwardRatio, "等比后复权": AdjustBackwardRatio,
}

func ParseAdjust(s string) (Adjust, error) {
	if a, ok := adjustAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return a, nil
	}
	return "", fmt.Errorf("unknown adjust mode %q", s)
}

// Query identifies one history request.
type Query struct {
	Code      string    `json:"code" yaml:"code"`
	Market    string    `json:"market" yaml:"market"`
	Frequency Frequency `json:"frequency" yaml:"frequency"`
	Adjust    Adjust    `json:"adjust" yaml:"adjust"`
	Start     time.Time `json:"start" yaml:"start"`
	End       time.Time `json:"end" yaml:"end"`
}

// Normalized upper-cases the market, fills defaults and forces unadjusted prices for
// intraday bars, which is the only mode the upstream serves for them.
func (q Query) Normalized() Query {
	q.Code = strings.TrimSpace(q.Code)
	q.Market = strings.ToUpper(strings.TrimSpace(q.Market))
	if q.Market == "" {
		q.Market = "SZ"
	}
	if q.Frequency == "" {
		q.Frequency = FreqDaily
	}
	if q.Adjust == "" || q.Frequency.Intraday() {
		q.Adjust = AdjustNone
	}
	return q
}

func (q Query) Validate() error {
	if q.Code == "" {
		return fmt.Errorf("code is required")
	}
	if _, err := ParseFrequency(string(q.Frequency)); err != nil {
		return err
	}
	if _, err := ParseAdjust(string(q.Adjust)); err != nil {
		return err
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if q.Start.After(q.End) {
		return fmt.Errorf("start %s is after end %s", q.Start.Format(time.DateOnly), q.End.Format(time.DateOnly))
	}
	return nil
}

func (q Query) Symbol() string { return q.Code + "." + q.Market }

// CacheKey is readable for listing and unique per query: the symbol, interval and
// adjust mode followed by a sha256 prefix over every field.
func CacheKey(q Query) string {
	q = q.Normalized()
	raw := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		q.Code, q.Market, q.Frequency, q.Adjust,
		q.Start.Format(compactDate), q.End.Format(compactDate))
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s_%s_%s_%s_%s", q.Code, q.Market, q.Frequency, q.Adjust, hex.EncodeToString(sum[:])[:12])
}

const compactDate = "20060102"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	compactDate,
}

// ParseTime accepts the timestamp layouts seen in Zhitu payloads, cached CSVs and CLI flags.
// Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
