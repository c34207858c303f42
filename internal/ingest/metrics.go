package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ingestion counters. A nil *Metrics records nothing.
type Metrics struct {
	articlesAdded   prometheus.Counter
	articlesSkipped *prometheus.CounterVec
	refreshFailures *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// NewMetrics registers the ingestion collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		articlesAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "rsspull",
			Name:      "articles_added_total",
			Help:      "Total number of articles inserted",
		}),
		articlesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rsspull",
			Name:      "articles_skipped_total",
			Help:      "Total number of entries not inserted, by reason",
		}, []string{"reason"}),
		refreshFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rsspull",
			Name:      "refresh_failures_total",
			Help:      "Total number of failed source refreshes, by error kind",
		}, []string{"kind"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rsspull",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of source refreshes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordReport adds the outcome of one refresh to the collectors
func (m *Metrics) RecordReport(report Report) {
	if m == nil {
		return
	}

	m.articlesAdded.Add(float64(report.Added))
	m.articlesSkipped.WithLabelValues("duplicate").Add(float64(report.SkippedDuplicate))
	m.articlesSkipped.WithLabelValues("invalid").Add(float64(report.SkippedInvalid))
	m.articlesSkipped.WithLabelValues("store_error").Add(float64(report.Failed))

	if report.State == StateFailed {
		m.refreshFailures.WithLabelValues(report.ErrorKind).Inc()
	}

	m.refreshDuration.Observe(report.Duration.Seconds())
}

