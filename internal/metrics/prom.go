package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbridge_sessions_total",
			Help: "Authentication sessions opened, by initial transport",
		},
		[]string{"transport"},
	)

	sessionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbridge_session_outcomes_total",
			Help: "Terminal session outcomes",
		},
		[]string{"outcome"},
	)

	transportFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "authbridge_transport_fallback_total",
			Help: "Embedded-to-popup transport fallbacks",
		},
	)

	droppedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authbridge_messages_dropped_total",
			Help: "Inbound messages rejected by the origin or schema gate",
		},
		[]string{"gate"},
	)

	sessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authbridge_session_duration_seconds",
			Help:    "Session duration from open to teardown",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(sessionsStarted, sessionOutcomes, transportFallbacks, droppedMessages, sessionDuration)
}

// RecordSessionStart increments the session counter for a transport kind.
func RecordSessionStart(transport string) {
	sessionsStarted.WithLabelValues(transport).Inc()
}

// RecordOutcome increments the terminal outcome counter.
func RecordOutcome(outcome string) {
	sessionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordFallback increments the transport fallback counter.
func RecordFallback() {
	transportFallbacks.Inc()
}

// RecordDroppedMessage increments the dropped message counter for a gate.
func RecordDroppedMessage(gate string) {
	droppedMessages.WithLabelValues(gate).Inc()
}

// ObserveSessionDuration records the lifetime of a finished session.
func ObserveSessionDuration(d time.Duration) {
	sessionDuration.Observe(d.Seconds())
}
