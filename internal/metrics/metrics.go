package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "interaction"

var (
	// operations counts engine calls.
	// Labels: op (toggle_like, follow, record_view, ...), result (ok or error kind)
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Interaction engine operations by result",
	}, []string{"op", "result"})

	// operationLatency measures engine call latency including post-commit reads.
	operationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Interaction engine operation latency in seconds",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"op"})

	// degradedViews counts views counted without deduplication.
	degradedViews = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "views_degraded_total",
		Help:      "Views counted without deduplication because the dedup store was unavailable",
	})

	// sideEffectFailures counts best-effort post-commit work that failed.
	// Labels: kind (publish, track)
	sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "side_effect_failures_total",
		Help:      "Post-commit side effects that failed",
	}, []string{"kind"})

	// reconciledRecords counts records whose counters were recomputed.
	// Labels: scope (content, user)
	reconciledRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reconciler",
		Name:      "records_total",
		Help:      "Records recomputed by the counter reconciler",
	}, []string{"scope"})
)

// ObserveOperation records one engine call.
func ObserveOperation(op, result string, elapsed time.Duration) {
	operations.WithLabelValues(op, result).Inc()
	operationLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveDegradedView records a view counted in degraded mode.
func ObserveDegradedView() {
	degradedViews.Inc()
}

// ObserveSideEffectFailure records a failed post-commit side effect.
func ObserveSideEffectFailure(kind string) {
	sideEffectFailures.WithLabelValues(kind).Inc()
}

// ObserveReconciled records n recomputed records of scope.
func ObserveReconciled(scope string, n int) {
	reconciledRecords.WithLabelValues(scope).Add(float64(n))
}
