package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the
// dashboard's load pipeline and HTTP surface.
type Metrics struct {
	RowsParsed      prometheus.Counter
	PointsMatched   prometheus.Counter
	PointsUnmatched prometheus.Counter
	ValuesDropped   prometheus.Counter
	LoadErrors      prometheus.Counter
	StaleLoads      prometheus.Counter

	LoadDuration prometheus.Histogram

	SnapshotCache *prometheus.CounterVec // labels: result={hit,miss}
	Requests      *prometheus.CounterVec // labels: route
}

// NewMetrics creates and registers all dashboard metrics with the
// default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "indicator_rows_parsed_total",
			Help:      "Total indicator rows parsed from source tables.",
		}),
		PointsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "points_matched_total",
			Help:      "Total observations joined to a coordinate.",
		}),
		PointsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "points_unmatched_total",
			Help:      "Total observations with no coordinate match.",
		}),
		ValuesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "point_values_dropped_total",
			Help:      "Total matched observations dropped for a non-finite value.",
		}),
		LoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "load_errors_total",
			Help:      "Total snapshot loads that failed.",
		}),
		StaleLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "stale_loads_total",
			Help:      "Total completed loads discarded because a newer selection superseded them.",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "msa_atlas",
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete fetch-parse-join snapshot load.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msa_atlas",
			Name:      "http_requests_total",
			Help:      "API requests by route.",
		}, []string{"route"}),
	}

	prometheus.MustRegister(
		m.RowsParsed,
		m.PointsMatched,
		m.PointsUnmatched,
		m.ValuesDropped,
		m.LoadErrors,
		m.StaleLoads,
		m.LoadDuration,
		m.SnapshotCache,
		m.Requests,
	)

	return m
}

// NewMetricsForTesting creates Metrics with no registry attached to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsParsed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "indicator_rows_parsed_total"}),
		PointsMatched:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "points_matched_total"}),
		PointsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "points_unmatched_total"}),
		ValuesDropped:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "point_values_dropped_total"}),
		LoadErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "load_errors_total"}),
		StaleLoads:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "stale_loads_total"}),
		LoadDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "msa_atlas", Name: "load_duration_seconds"}),
		SnapshotCache:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "snapshot_cache_total"}, []string{"result"}),
		Requests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "msa_atlas", Name: "http_requests_total"}, []string{"route"}),
	}
}
