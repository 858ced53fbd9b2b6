package sync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// syncRuns counts completed sync passes.
	// Labels: result (success, unavailable, rejected, error)
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Total sync passes by result",
	}, []string{"result"})

	// syncDuration measures the wall time of one sync pass.
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "splitsync",
		Subsystem: "sync",
		Name:      "pass_duration_seconds",
		Help:      "Duration of sync passes in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// replayedMutations counts replay attempts per queued mutation.
	// Labels: kind (action kind), result (ok, unavailable, rejected, invalid)
	replayedMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "sync",
		Name:      "replayed_mutations_total",
		Help:      "Replay attempts by action kind and result",
	}, []string{"kind", "result"})

	// pendingMutations reports the queue depth after each pass.
	pendingMutations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "splitsync",
		Subsystem: "sync",
		Name:      "pending_mutations",
		Help:      "Mutations waiting for replay",
	})

	// reconcileFailures counts groups whose post-replay refresh failed.
	reconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "sync",
		Name:      "reconcile_failures_total",
		Help:      "Failed post-replay cache refreshes",
	})
)

func recordSyncRun(result string, duration time.Duration) {
	syncRuns.WithLabelValues(result).Inc()
	syncDuration.Observe(duration.Seconds())
}

func recordReplay(kind, result string) {
	replayedMutations.WithLabelValues(kind, result).Inc()
}

func setPendingMutations(n int) {
	pendingMutations.Set(float64(n))
}
