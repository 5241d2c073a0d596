package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var sessionPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "training_service",
	Subsystem: "persistence",
	Name:      "last_session_persisted_timestamp_seconds",
	Help:      "Unix timestamp of the most recent session persisted to Postgres.",
})

func init() {
	prometheus.MustRegister(sessionPersistGauge)
}

// RecordSessionPersisted updates the persistence watermark gauge.
func RecordSessionPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	sessionPersistGauge.Set(float64(ts.Unix()))
}
