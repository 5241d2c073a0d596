package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	consumedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "consumer",
		Name:      "events_consumed_total",
		Help:      "Number of acknowledged deliveries, labeled by event type.",
	}, []string{"event_type"})

	consumeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "consumer",
		Name:      "failures_total",
		Help:      "Number of deliveries that could not be processed, labeled by reason.",
	}, []string{"reason"})

	sessionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "training_service",
		Subsystem: "consumer",
		Name:      "session_duration_seconds",
		Help:      "Duration distribution of completed sessions seen on the queue.",
		Buckets:   prometheus.LinearBuckets(600, 600, 12),
	})
)

func init() {
	prometheus.MustRegister(consumedCounter, consumeFailures, sessionDuration)
}

func recordConsumed(eventType string) {
	consumedCounter.WithLabelValues(eventType).Inc()
}

func recordConsumeFailure(reason string) {
	consumeFailures.WithLabelValues(reason).Inc()
}

func observeSessionDuration(durationSec int) {
	sessionDuration.Observe(float64(durationSec))
}
