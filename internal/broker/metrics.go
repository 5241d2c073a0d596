package broker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "broker",
		Name:      "connect_failures_total",
		Help:      "Number of failed broker connection attempts.",
	})

	connectionsEstablished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "broker",
		Name:      "connections_established_total",
		Help:      "Number of successful broker (re)connections, each asserting the exchange.",
	})

	stateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "training_service",
		Subsystem: "broker",
		Name:      "connection_state",
		Help:      "Current connection state (0 disconnected, 1 connecting, 2 connected, 3 reconnecting).",
	})

	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "broker",
		Name:      "events_published_total",
		Help:      "Number of events confirmed by the broker, labeled by event type.",
	}, []string{"event_type"})

	publishFailedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "training_service",
		Subsystem: "broker",
		Name:      "events_failed_total",
		Help:      "Number of events that failed to publish, labeled by event type.",
	}, []string{"event_type"})

	publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "training_service",
		Subsystem: "broker",
		Name:      "publish_duration_seconds",
		Help:      "Time from publish call to broker confirm.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(connectFailures, connectionsEstablished, stateGauge, publishedCounter, publishFailedCounter, publishDuration)
}

func recordConnectFailure() {
	connectFailures.Inc()
}

func recordConnected() {
	connectionsEstablished.Inc()
}

func recordState(state State) {
	stateGauge.Set(float64(state))
}

func observePublish(eventType string, elapsed time.Duration, err error) {
	publishDuration.Observe(elapsed.Seconds())
	if err != nil {
		publishFailedCounter.WithLabelValues(eventType).Inc()
		return
	}
	publishedCounter.WithLabelValues(eventType).Inc()
}
