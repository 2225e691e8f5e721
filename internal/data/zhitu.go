package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"grid-backtest/internal/logging"
	"grid-backtest/internal/model"

	"github.com/go-resty/resty/v2"
)

const DefaultZhituBaseURL = "https://api.zhituapi.com"

var log = logging.For("data")

// ZhituClient fetches A-share history bars from the Zhitu HTTP API.
type ZhituClient struct {
	token string
	http  *resty.Client
}

type ZhituOption func(*resty.Client)

// WithRetry sets the number of retries after the first attempt and the wait between them.
func WithRetry(retries int, wait time.Duration) ZhituOption {
	return func(c *resty.Client) {
		c.SetRetryCount(retries).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(wait)
	}
}

func WithTimeout(d time.Duration) ZhituOption {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// NewZhituClient creates a client. An empty baseURL means DefaultZhituBaseURL.
// By default a request is tried 3 times, 2 seconds apart.
func NewZhituClient(token, baseURL string, opts ...ZhituOption) *ZhituClient {
	if baseURL == "" {
		baseURL = DefaultZhituBaseURL
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})
	WithRetry(2, 2*time.Second)(rc)
	for _, opt := range opts {
		opt(rc)
	}
	return &ZhituClient{token: token, http: rc}
}

// APIError is a failure reported by the upstream API, or a request that cannot be sent.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("zhitu: %s (status %d)", e.Message, e.StatusCode)
	}
	return "zhitu: " + e.Message
}

// IsFatal reports whether every following request would fail the same way.
func IsFatal(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case "MISSING_TOKEN", "UNAUTHORIZED", "RATE_LIMIT_EXCEEDED":
		return true
	}
	return false
}

// zhituBar is one element of the history response array.
type zhituBar struct {
	T  string  `json:"t"`
	O  float64 `json:"o"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	C  float64 `json:"c"`
	V  float64 `json:"v"`
	A  float64 `json:"a"`
	PC float64 `json:"pc"`
	SF int     `json:"sf"`
}

// FetchBars implements Source. Suspended bars (sf=1) are dropped.
func (c *ZhituClient) FetchBars(ctx context.Context, q Query) (model.PriceSeries, error) {
	if c.token == "" {
		return model.PriceSeries{}, &APIError{Code: "MISSING_TOKEN", Message: "ZHITU_TOKEN is required"}
	}
	q = q.Normalized()
	if err := q.Validate(); err != nil {
		return model.PriceSeries{}, fmt.Errorf("invalid query: %w", err)
	}

	started := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"symbol": q.Symbol(),
			"freq":   string(q.Frequency),
			"adjust": string(q.Adjust),
		}).
		SetQueryParams(map[string]string{
			"token": c.token,
			"st":    q.Start.Format(compactDate),
			"et":    q.End.Format(compactDate),
		}).
		Get("/hs/history/{symbol}/{freq}/{adjust}")
	elapsed := time.Since(started)
	if err != nil {
		log.Error().Err(err).Str("symbol", q.Symbol()).Dur("elapsed", elapsed).Msg("request failed")
		return model.PriceSeries{}, fmt.Errorf("zhitu request %s: %w", q.Symbol(), err)
	}

	log.Info().
		Str("symbol", q.Symbol()).
		Str("freq", string(q.Frequency)).
		Str("adjust", string(q.Adjust)).
		Int("status", resp.StatusCode()).
		Dur("elapsed", elapsed).
		Msg("history response")

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.PriceSeries{}, &APIError{StatusCode: resp.StatusCode(), Code: "UNAUTHORIZED", Message: "token rejected"}
	case http.StatusNotFound:
		return model.PriceSeries{}, &APIError{StatusCode: resp.StatusCode(), Code: "NOT_FOUND", Message: "no history for " + q.Symbol()}
	case http.StatusTooManyRequests:
		return model.PriceSeries{}, &APIError{StatusCode: resp.StatusCode(), Code: "RATE_LIMIT_EXCEEDED", Message: "rate limit exceeded"}
	default:
		return model.PriceSeries{}, &APIError{
			StatusCode: resp.StatusCode(),
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned %s", resp.Status()),
		}
	}

	bars, err := decodeHistory(resp.Body())
	if err != nil {
		return model.PriceSeries{}, err
	}
	series, err := NewSeries(bars)
	if err != nil {
		return model.PriceSeries{}, err
	}
	if series.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: no bars for %s between %s and %s", model.ErrEmptySeries,
			q.Symbol(), q.Start.Format(time.DateOnly), q.End.Format(time.DateOnly))
	}
	return series.Between(q.Start, q.End), nil
}

// decodeHistory parses the bar array. The API reports some failures with status 200 and
// a JSON object instead of an array.
func decodeHistory(body []byte) ([]model.PriceBar, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		msg := fmt.Sprint(obj)
		for _, k := range []string{"error", "msg", "message"} {
			if v, ok := obj[k]; ok {
				msg = fmt.Sprint(v)
				break
			}
		}
		return nil, &APIError{StatusCode: http.StatusOK, Code: "API_ERROR", Message: msg}
	}

	var rows []zhituBar
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	bars := make([]model.PriceBar, 0, len(rows))
	for _, r := range rows {
		if r.SF == 1 {
			continue
		}
		ts, err := ParseTime(r.T)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidSeries, err)
		}
		bars = append(bars, model.PriceBar{
			Timestamp: ts,
			Open:      r.O,
			High:      r.H,
			Low:       r.L,
			Close:     r.C,
			Volume:    r.V,
		})
	}
	return bars, nil
}
