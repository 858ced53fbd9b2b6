package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheFallbacks counts reads answered from the local cache because the
	// remote service was unreachable.
	// Labels: read (group, expenses, balances)
	cacheFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "service",
		Name:      "cache_fallbacks_total",
		Help:      "Reads served from the cache while offline",
	}, []string{"read"})

	// queuedWrites counts writes captured locally for later replay.
	// Labels: kind (action kind)
	queuedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "splitsync",
		Subsystem: "service",
		Name:      "queued_writes_total",
		Help:      "Writes queued while offline by action kind",
	}, []string{"kind"})
)

func recordCacheFallback(read string) {
	cacheFallbacks.WithLabelValues(read).Inc()
}

func recordQueuedWrite(kind string) {
	queuedWrites.WithLabelValues(kind).Inc()
}
