package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        *prometheus.GaugeVec
	signInsTotal    *prometheus.CounterVec
	schedulesTotal  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests currently being served per route",
		}, []string{"route"}),
		signInsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signins_total",
			Help: "Provider sign-in callbacks by outcome",
		}, []string{"outcome"}), // outcome: success|missing_code|invalid_state|forbidden|exchange_failed|error
		schedulesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_requests_total",
			Help: "Scheduling requests by event type and outcome",
		}, []string{"type", "outcome"}), // outcome: created|invalid|unauthenticated|permission_revoked|provider_error|throttled|error
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.inflight, m.signInsTotal, m.schedulesTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observeRequest(method, route, status string, elapsed time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
