package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons used as the reason label of ScanFailures.
const (
	ReasonFetch   = "fetch"
	ReasonChannel = "channel"
	ReasonCancel  = "canceled"
)

// Metrics holds all Prometheus metrics of the scanner. It is safe for concurrent use.
type Metrics struct {
	ScansTotal       prometheus.Counter
	ScanFailures     *prometheus.CounterVec // labels: reason
	ChannelsTotal    *prometheus.CounterVec // labels: status, type
	SignalsTotal     *prometheus.CounterVec // labels: direction
	ScanDuration     prometheus.Histogram
	CycleDuration    prometheus.Histogram
	NotifyFailures   *prometheus.CounterVec // labels: sink
	LastCycleSignals prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics registers and returns all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_scans_total",
			Help: "Total per-symbol scans attempted",
		}),
		ScanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_scan_failures_total",
			Help: "Per-symbol scans that produced no channel (by reason)",
		}, []string{"reason"}),
		ChannelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_channels_total",
			Help: "Channels detected (by status and type)",
		}, []string{"status", "type"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_signals_total",
			Help: "Signals synthesized (by direction)",
		}, []string{"direction"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_scan_duration_seconds",
			Help:    "Per-symbol scan latency including data fetch",
			Buckets: prometheus.DefBuckets,
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Watchlist scan cycle latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_notify_failures_total",
			Help: "Failed signal deliveries (by sink)",
		}, []string{"sink"}),
		LastCycleSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_last_cycle_signals",
			Help: "Signals produced by the most recent cycle",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ScansTotal,
		m.ScanFailures,
		m.ChannelsTotal,
		m.SignalsTotal,
		m.ScanDuration,
		m.CycleDuration,
		m.NotifyFailures,
		m.LastCycleSignals,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
