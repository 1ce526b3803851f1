// Package metrics holds the Prometheus collectors of the clinic backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tuina_clinic"

// Metrics owns a private registry and the application collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	chargeRejections    *prometheus.CounterVec
	cardTransitions     *prometheus.CounterVec
	sweeperRuns         *prometheus.CounterVec
	sweeperExpiredCards prometheus.Counter
}

// New creates the collectors and registers them, along with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.chargeRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_charge_rejections_total",
			Help:      "Membership charges rejected, by reason.",
		},
		[]string{"reason"},
	)
	m.cardTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_card_status_transitions_total",
			Help:      "Persisted card status changes, by target status.",
		},
		[]string{"status"},
	)
	m.sweeperRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_sweeper_runs_total",
			Help:      "Expiry sweeper runs, by result.",
		},
		[]string{"result"},
	)
	m.sweeperExpiredCards = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_sweeper_expired_cards_total",
			Help:      "Cards marked expired by the sweeper.",
		},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.chargeRejections,
		m.cardTransitions,
		m.sweeperRuns,
		m.sweeperExpiredCards,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ChargeRejected counts a rejected membership charge.
func (m *Metrics) ChargeRejected(reason string) {
	if m == nil {
		return
	}
	m.chargeRejections.WithLabelValues(reason).Inc()
}

// CardStatusChanged counts a persisted card status transition.
func (m *Metrics) CardStatusChanged(status string) {
	if m == nil {
		return
	}
	m.cardTransitions.WithLabelValues(status).Inc()
}

// SweepFinished counts a sweeper run and the cards it expired.
func (m *Metrics) SweepFinished(err error, expired int) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.sweeperRuns.WithLabelValues(result).Inc()
	m.sweeperExpiredCards.Add(float64(expired))
}
