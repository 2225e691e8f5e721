package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"grid-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyBody = `[
 {"t":"2024-01-03 00:00:00","o":10.2,"h":10.6,"l":10.1,"c":10.5,"v":1200,"a":12600,"pc":10.2,"sf":0},
 {"t":"2024-01-02 00:00:00","o":10.0,"h":10.3,"l":9.9,"c":10.2,"v":1000,"a":10200,"pc":10.0,"sf":0},
 {"t":"2024-01-04 00:00:00","o":10.5,"h":10.5,"l":10.5,"c":10.5,"v":0,"a":0,"pc":10.5,"sf":1}
]`

func testQuery() Query {
	return Query{Code: "000001", Market: "SZ", Frequency: FreqDaily, Adjust: AdjustForward, Start: day(1), End: day(31)}
}

func fastClient(token, url string) *ZhituClient {
	return NewZhituClient(token, url, WithRetry(2, time.Millisecond), WithTimeout(5*time.Second))
}

func TestZhitu_FetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hs/history/000001.SZ/d/f", r.URL.Path)
		assert.Equal(t, "secret-token", r.URL.Query().Get("token"))
		assert.Equal(t, "20240101", r.URL.Query().Get("st"))
		assert.Equal(t, "20240131", r.URL.Query().Get("et"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	s, err := fastClient("secret-token", srv.URL).FetchBars(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, []float64{10.2, 10.5}, s.Closes(), "sorted, suspended bar dropped")
	assert.Equal(t, 1000.0, s.First().Volume)
}

func TestZhitu_IntradayForcesUnadjusted(t *testing.T) {
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		_, _ = w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	q := testQuery()
	q.Frequency = Freq15Min
	_, err := fastClient("secret-token", srv.URL).FetchBars(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "/hs/history/000001.SZ/15/n", path.Load())
}

func TestZhitu_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(historyBody))
	}))
	defer srv.Close()

	s, err := fastClient("secret-token", srv.URL).FetchBars(context.Background(), testQuery())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int32(3), hits.Load())
}

func TestZhitu_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, "", "UNAUTHORIZED"},
		{"not found", http.StatusNotFound, "", "NOT_FOUND"},
		{"server error after retries", http.StatusInternalServerError, "", "API_ERROR"},
		{"error object with 200", http.StatusOK, `{"error":"token expired"}`, "API_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := fastClient("secret-token", srv.URL).FetchBars(context.Background(), testQuery())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestZhitu_MissingTokenMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := fastClient("", srv.URL).FetchBars(context.Background(), testQuery())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "MISSING_TOKEN", apiErr.Code)
	assert.Zero(t, hits.Load())
}

func TestZhitu_EmptyHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := fastClient("secret-token", srv.URL).FetchBars(context.Background(), testQuery())
	assert.ErrorIs(t, err, model.ErrEmptySeries)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&APIError{Code: "UNAUTHORIZED"}))
	assert.True(t, IsFatal(fmt.Errorf("fetch: %w", &APIError{Code: "RATE_LIMIT_EXCEEDED"})))
	assert.False(t, IsFatal(&APIError{Code: "NOT_FOUND"}))
	assert.False(t, IsFatal(errors.New("boom")))
}
