package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition orchestrator.
type Metrics struct {
	UnitsAttempted prometheus.Counter
	UnitsSucceeded prometheus.Counter
	UnitsFailed    prometheus.Counter
	RecordsMerged  prometheus.Counter

	// Retry metrics.
	Retries             *prometheus.CounterVec // labels: reason={rate_limited,transient}
	BackoffSecondsTotal prometheus.Counter

	UnitDuration       prometheus.Histogram
	AcquisitionRunning prometheus.Gauge
}

// NewMetrics creates and registers all orchestrator metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		UnitsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherbuild",
			Name:      "fetch_units_attempted_total",
			Help:      "Total fetch units scheduled against the archive.",
		}),
		UnitsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherbuild",
			Name:      "fetch_units_succeeded_total",
			Help:      "Total fetch units that produced records.",
		}),
		UnitsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherbuild",
			Name:      "fetch_units_failed_total",
			Help:      "Total fetch units that exhausted their retries.",
		}),
		RecordsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherbuild",
			Name:      "records_merged_total",
			Help:      "Total hourly records merged into aggregated datasets.",
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weatherbuild",
			Name:      "fetch_retries_total",
			Help:      "Unit retry attempts by failure reason.",
		}, []string{"reason"}),
		BackoffSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weatherbuild",
			Name:      "backoff_seconds_total",
			Help:      "Cumulative seconds spent waiting out archive rate limits.",
		}),
		UnitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weatherbuild",
			Name:      "fetch_unit_duration_seconds",
			Help:      "Duration of one successful fetch unit, including retries.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		AcquisitionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weatherbuild",
			Name:      "acquisition_running",
			Help:      "1 while an acquisition is in progress, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.UnitsAttempted,
		m.UnitsSucceeded,
		m.UnitsFailed,
		m.RecordsMerged,
		m.Retries,
		m.BackoffSecondsTotal,
		m.UnitDuration,
		m.AcquisitionRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		UnitsAttempted:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weatherbuild", Name: "fetch_units_attempted_total"}),
		UnitsSucceeded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weatherbuild", Name: "fetch_units_succeeded_total"}),
		UnitsFailed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weatherbuild", Name: "fetch_units_failed_total"}),
		RecordsMerged:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weatherbuild", Name: "records_merged_total"}),
		Retries:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weatherbuild", Name: "fetch_retries_total"}, []string{"reason"}),
		BackoffSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weatherbuild", Name: "backoff_seconds_total"}),
		UnitDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weatherbuild", Name: "fetch_unit_duration_seconds"}),
		AcquisitionRunning:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weatherbuild", Name: "acquisition_running"}),
	}
}
