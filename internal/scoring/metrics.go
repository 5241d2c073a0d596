package scoring

import "github.com/prometheus/client_golang/prometheus"

var sessionLoadHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "training_service",
	Subsystem: "scoring",
	Name:      "session_load",
	Help:      "Distribution of per-session training load scores.",
	Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
})

func init() {
	prometheus.MustRegister(sessionLoadHistogram)
}

func recordSessionLoad(score float64) {
	sessionLoadHistogram.Observe(score)
}
