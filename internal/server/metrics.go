package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "weekplan"

// Metrics holds the Prometheus collectors for one server. Each server gets its
// own registry so tests can build several without duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	DaysToggled    prometheus.Counter
	EventsCreated  prometheus.Counter
	EventsDeleted  prometheus.Counter
	Rollovers      *prometheus.CounterVec
	RolloverResult *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DaysToggled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "days_toggled_total",
			Help:      "Total number of sequence days toggled",
		}),
		EventsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_created_total",
			Help:      "Total number of calendar events created",
		}),
		EventsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_deleted_total",
			Help:      "Total number of calendar events deleted",
		}),
		Rollovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rollovers_total",
				Help:      "Total number of week rollovers",
			},
			[]string{"trigger"},
		),
		RolloverResult: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "last_rollover_sequences",
				Help:      "Sequences kept and archived by the last rollover",
			},
			[]string{"outcome"},
		),
	}

	// Export both outcomes before the first rollover runs.
	for _, outcome := range []string{"kept", "archived"} {
		m.RolloverResult.WithLabelValues(outcome).Set(0)
	}

	registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.DaysToggled,
		m.EventsCreated,
		m.EventsDeleted,
		m.Rollovers,
		m.RolloverResult,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
