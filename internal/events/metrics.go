package events

import "github.com/prometheus/client_golang/prometheus"

var handlerFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "training_service",
	Subsystem: "events",
	Name:      "handler_failures_total",
	Help:      "Number of in-process subscribers that panicked while handling an event.",
})

func init() {
	prometheus.MustRegister(handlerFailures)
}

func recordHandlerFailure() {
	handlerFailures.Inc()
}
