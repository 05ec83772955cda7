// Package metrics provides Prometheus metrics for process termination and respawn supervision.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	killOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reaper",
		Subsystem: "kill",
		Name:      "outcomes_total",
		Help:      "Termination outcomes by result",
	}, []string{"result"})

	killDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reaper",
		Subsystem: "kill",
		Name:      "duration_seconds",
		Help:      "Time spent escalating a single termination",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"result"})

	killTrees = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reaper",
		Subsystem: "kill",
		Name:      "trees_total",
		Help:      "Kill-tree requests processed",
	}, []string{"kind"})

	// Local cache for API access.
	outcomeCache   = make(map[string]uint64)
	outcomeCacheMu sync.RWMutex
)

// ObserveKillOutcome records one termination outcome.
func ObserveKillOutcome(result string, elapsed time.Duration) {
	killOutcomes.WithLabelValues(result).Inc()
	killDuration.WithLabelValues(result).Observe(elapsed.Seconds())

	outcomeCacheMu.Lock()
	outcomeCache[result]++
	outcomeCacheMu.Unlock()
}

// ObserveKillTree records a completed kill-tree request of the given kind
// (kill, batch-kill, kill-and-restart).
func ObserveKillTree(kind string) {
	killTrees.WithLabelValues(kind).Inc()
}

// GetKillOutcomes returns the number of outcomes recorded per result.
func GetKillOutcomes() map[string]uint64 {
	outcomeCacheMu.RLock()
	defer outcomeCacheMu.RUnlock()
	result := make(map[string]uint64, len(outcomeCache))
	for k, v := range outcomeCache {
		result[k] = v
	}
	return result
}
