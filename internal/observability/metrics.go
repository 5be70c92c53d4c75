package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// conversion batch.
type Metrics struct {
	ArchivesProcessed prometheus.Counter
	ArchivesFailed    *prometheus.CounterVec // label: reason={structural,calibration,write}
	SamplesParsed     prometheus.Counter
	SamplesSkipped    prometheus.Counter
	DaysWritten       prometheus.Counter

	MissingSlots prometheus.Histogram
	UnitDuration prometheus.Histogram
	RunRunning   prometheus.Gauge
}

// NewMetrics creates and registers all batch metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ArchivesProcessed,
		m.ArchivesFailed,
		m.SamplesParsed,
		m.SamplesSkipped,
		m.DaysWritten,
		m.MissingSlots,
		m.UnitDuration,
		m.RunRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArchivesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mag_etl",
			Name:      "archives_processed_total",
			Help:      "Total hourly archives successfully extracted and converted.",
		}),
		ArchivesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mag_etl",
			Name:      "archives_failed_total",
			Help:      "Total hourly archives skipped, by failure reason.",
		}, []string{"reason"}),
		SamplesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mag_etl",
			Name:      "samples_parsed_total",
			Help:      "Total per-second data lines parsed from archive members.",
		}),
		SamplesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mag_etl",
			Name:      "samples_skipped_total",
			Help:      "Total malformed data lines dropped during parsing.",
		}),
		DaysWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mag_etl",
			Name:      "days_written_total",
			Help:      "Total station-day output files written.",
		}),
		MissingSlots: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mag_etl",
			Name:      "missing_slots_per_day",
			Help:      "Missing seconds per assembled station-day (of 86400).",
			Buckets:   []float64{0, 60, 600, 3600, 7200, 21600, 43200, 86400},
		}),
		UnitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mag_etl",
			Name:      "unit_duration_seconds",
			Help:      "Duration of a complete station-day unit (extract through write).",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mag_etl",
			Name:      "run_running",
			Help:      "1 while a conversion run is active, 0 otherwise.",
		}),
	}
}
