package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kwentura"

var (
	// CallableRequests counts callable invocations by operation and outcome
	CallableRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "callable",
			Name:      "requests_total",
			Help:      "Total number of callable requests",
		},
		[]string{"operation", "outcome"}, // outcome: ok or the error status
	)

	CallableDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "callable",
			Name:      "duration_seconds",
			Help:      "Callable latency",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 15, 60, 300},
		},
		[]string{"operation"},
	)

	CascadeItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "items_total",
			Help:      "Items processed by the story deletion cascade",
		},
		[]string{"phase", "result"}, // phase: blobs, subcollections, quiz_scores
	)

	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Admin log entries by source",
		},
		[]string{"source", "result"}, // source: trigger, ui
	)

	ActiveUsers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "active_users",
			Help:      "Active users from the most recent aggregation",
		},
		[]string{"window"}, // daily, weekly, monthly
	)

	ReconcileOrphans = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "orphans",
			Help:      "Orphaned records found by the last reconciliation run",
		},
		[]string{"kind"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Generative AI and speech requests",
		},
		[]string{"operation", "result"},
	)
)

// Result returns the label used for success/failure outcomes
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
