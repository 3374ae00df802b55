// Package metrics exposes Prometheus metrics for the frame backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frame"

// Outcome labels.
const (
	ResultSuccess     = "success"
	ResultCooldown    = "cooldown"
	ResultInProgress  = "in_progress"
	ResultUnavailable = "unavailable"
	ResultFailed      = "failed"
	ResultNotFound    = "not_found"
	ResultInvalid     = "invalid"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	claims       *prometheus.CounterVec
	mints        *prometheus.CounterVec
	scoreLookups *prometheus.CounterVec
	disburseTime prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Reward claim attempts by outcome.",
		}, []string{"result"}),
		mints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mints_total",
			Help:      "NFT mint attempts by outcome.",
		}, []string{"result"}),
		scoreLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_lookups_total",
			Help:      "Score lookups by outcome.",
		}, []string{"result"}),
		disburseTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "onchain_confirmation_seconds",
			Help:      "Time from submitting a transfer or mint to its confirmation.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.claims,
		m.mints,
		m.scoreLookups,
		m.disburseTime,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) Claim(result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(result).Inc()
}

func (m *Metrics) Mint(result string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(result).Inc()
}

func (m *Metrics) ScoreLookup(result string) {
	if m == nil {
		return
	}
	m.scoreLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveConfirmation(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.disburseTime.Observe(elapsed.Seconds())
}
