// Package metrics registers the Prometheus instruments covering the passport
// resolution pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SearchesStarted   prometheus.Counter
	ProbeFailures     prometheus.Counter
	RegistriesFound   prometheus.Counter
	Callbacks         *prometheus.CounterVec
	PassportsStored   prometheus.Counter
	ProbeDuration     prometheus.Histogram
	RegistryQueryTime prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "twinpass_searches_started_total",
			Help: "Total number of passport searches started",
		}),
		ProbeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "twinpass_dtr_probe_failures_total",
			Help: "Total number of connector probes that failed during search fan-out",
		}),
		RegistriesFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "twinpass_dtr_registries_found_total",
			Help: "Total number of reachable registry candidates discovered",
		}),
		Callbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "twinpass_callbacks_total",
			Help: "Inbound data-plane callbacks by kind and outcome",
		}, []string{"kind", "outcome"}),
		PassportsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "twinpass_passports_stored_total",
			Help: "Total number of passports fetched and persisted",
		}),
		ProbeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "twinpass_dtr_probe_duration_seconds",
			Help:    "Latency of individual connector probes",
			Buckets: prometheus.DefBuckets,
		}),
		RegistryQueryTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "twinpass_registry_query_duration_seconds",
			Help:    "Latency of digital twin registry queries during callbacks",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveProbe records one connector probe attempt.
func (m *Metrics) ObserveProbe(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ProbeDuration.Observe(d.Seconds())
	if err != nil {
		m.ProbeFailures.Inc()
	} else {
		m.RegistriesFound.Inc()
	}
}

// CountSearchStarted records one accepted search request.
func (m *Metrics) CountSearchStarted() {
	if m == nil {
		return
	}
	m.SearchesStarted.Inc()
}

// ObserveRegistryQuery records the latency of one twin registry query.
func (m *Metrics) ObserveRegistryQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.RegistryQueryTime.Observe(d.Seconds())
}

// CountPassportStored records one successfully persisted passport.
func (m *Metrics) CountPassportStored() {
	if m == nil {
		return
	}
	m.PassportsStored.Inc()
}

// CountCallback records one inbound callback with its outcome label.
func (m *Metrics) CountCallback(kind, outcome string) {
	if m == nil {
		return
	}
	m.Callbacks.WithLabelValues(kind, outcome).Inc()
}
