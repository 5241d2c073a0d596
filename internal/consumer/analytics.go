package consumer

import (
	"context"
	"fmt"
	"log"

	"example.com/training/internal/broker"
)

// AnalyticsHandler records completed-session observations for dashboards.
type AnalyticsHandler struct {
	logger *log.Logger
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(opts ...AnalyticsOption) *AnalyticsHandler {
	h := &AnalyticsHandler{
		logger: log.New(log.Writer(), "[analytics] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AnalyticsOption configures optional AnalyticsHandler behaviour.
type AnalyticsOption func(*AnalyticsHandler)

// WithAnalyticsLogger overrides the logger.
func WithAnalyticsLogger(logger *log.Logger) AnalyticsOption {
	return func(h *AnalyticsHandler) {
		h.logger = logger
	}
}

// HandleSessionCompleted records the session in the duration histogram and
// logs a one-line summary.
func (h *AnalyticsHandler) HandleSessionCompleted(_ context.Context, envelope broker.Envelope) error {
	if envelope.Session == nil {
		return fmt.Errorf("envelope %s missing session payload", envelope.EventType)
	}

	observeSessionDuration(envelope.Session.DurationSec)
	h.logger.Printf("session completed: user=%s session=%s duration=%ds",
		envelope.UserExternalID, envelope.Session.SessionID, envelope.Session.DurationSec)
	return nil
}
