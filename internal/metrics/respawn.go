package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	respawnLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reaper",
		Subsystem: "respawn",
		Name:      "launches_total",
		Help:      "Child launches performed by respawn sessions",
	}, []string{"result"})

	respawnSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reaper",
		Subsystem: "respawn",
		Name:      "active_sessions",
		Help:      "Respawn sessions currently registered",
	})

	respawnEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reaper",
		Subsystem: "respawn",
		Name:      "sessions_ended_total",
		Help:      "Respawn sessions that ended, by reason",
	}, []string{"reason"})
)

// ObserveLaunch records a launch attempt. ok is false when the spawn failed.
func ObserveLaunch(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	respawnLaunches.WithLabelValues(result).Inc()
}

// SetActiveSessions sets the number of registered respawn sessions.
func SetActiveSessions(n int) {
	respawnSessions.Set(float64(n))
}

// ObserveSessionEnded records why a respawn session ended
// (cancelled, exhausted, launch_failed).
func ObserveSessionEnded(reason string) {
	respawnEnded.WithLabelValues(reason).Inc()
}
