package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the server's Prometheus collector set. It uses its own registry so that
// tests can build as many servers as they like.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BacktestsTotal     *prometheus.CounterVec
	OptimizationsTotal *prometheus.CounterVec
	SweepCells         prometheus.Counter
	SweepDuration      prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grid",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BacktestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid",
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Single backtests run, by outcome",
		}, []string{"outcome"}),
		OptimizationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grid",
			Subsystem: "optimizer",
			Name:      "runs_total",
			Help:      "Parameter sweeps run, by outcome",
		}, []string{"outcome"}),
		SweepCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "grid",
			Subsystem: "optimizer",
			Name:      "cells_evaluated_total",
			Help:      "Sweep cells evaluated",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "grid",
			Subsystem: "optimizer",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of one parameter sweep",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BacktestsTotal,
		m.OptimizationsTotal,
		m.SweepCells,
		m.SweepDuration,
	)
	return m
}

// Middleware records count and latency per matched route. Unmatched paths share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Outcome is the label value for a finished run.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveBacktest counts one single run. A nil Metrics records nothing.
func (m *Metrics) ObserveBacktest(err error) {
	if m == nil {
		return
	}
	m.BacktestsTotal.WithLabelValues(Outcome(err)).Inc()
}

// ObserveSweep counts one sweep and the cells it evaluated. A nil Metrics records nothing.
func (m *Metrics) ObserveSweep(evaluated int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.OptimizationsTotal.WithLabelValues(Outcome(err)).Inc()
	m.SweepCells.Add(float64(evaluated))
	m.SweepDuration.Observe(elapsed.Seconds())
}
