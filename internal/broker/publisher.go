package broker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"example.com/training/internal/domain"
)

// EventTypeSessionCompleted doubles as the routing key on the topic exchange.
const EventTypeSessionCompleted = "training.session.completed"

// Envelope is the wire-level wrapper for every published event. Constructed
// fresh per publish attempt; nothing is retained for retries.
type Envelope struct {
	EventType      string          `json:"eventType"`
	Timestamp      string          `json:"timestamp"`
	UserExternalID string          `json:"userExternalId"`
	Session        *SessionPayload `json:"session,omitempty"`
}

// SessionPayload is the session-completion body carried by the envelope.
type SessionPayload struct {
	SessionID       string   `json:"sessionId"`
	WorkoutID       *string  `json:"workoutId,omitempty"`
	Date            string   `json:"date"`
	DurationSec     int      `json:"duration"`
	PerceivedEffort *float64 `json:"perceivedEffort,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// exchangePublisher is the slice of the ConnectionManager used here.
type exchangePublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// Publisher serializes domain events into envelopes and hands them to the
// shared channel for persistent, confirmed delivery.
type Publisher struct {
	channel exchangePublisher
	logger  *log.Logger
	now     func() time.Time
}

// PublisherOption configures optional behaviour for the Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger overrides the logger.
func WithPublisherLogger(logger *log.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// withClock pins the envelope timestamp source for tests.
func withClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

// NewPublisher constructs a Publisher on top of the shared channel.
func NewPublisher(channel exchangePublisher, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		channel: channel,
		logger:  log.New(log.Writer(), "[publisher] ", log.LstdFlags|log.Lshortfile),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishSessionCompleted publishes the event with routing key
// training.session.completed, persistent delivery mode and a broker confirm.
func (p *Publisher) PublishSessionCompleted(ctx context.Context, event domain.SessionCompletedEvent) error {
	envelope := Envelope{
		EventType:      EventTypeSessionCompleted,
		Timestamp:      p.now().UTC().Format(time.RFC3339),
		UserExternalID: event.ExternalUserID,
		Session: &SessionPayload{
			SessionID:       event.SessionID,
			WorkoutID:       event.WorkoutID,
			Date:            event.Date.UTC().Format(time.RFC3339),
			DurationSec:     event.DurationSec,
			PerceivedEffort: event.AverageRPE,
			Notes:           event.Notes,
		},
	}

	return p.publish(ctx, EventTypeSessionCompleted, envelope)
}

func (p *Publisher) publish(ctx context.Context, eventType string, envelope Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.channel.Publish(ctx, eventType, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
	observePublish(eventType, time.Since(start), err)
	return err
}

// PublishSessionCompletedAsync detaches the publish from the caller. The
// session write has already committed by the time this runs; a broker failure
// is logged with the event context and dropped, never surfaced to the writer.
func (p *Publisher) PublishSessionCompletedAsync(event domain.SessionCompletedEvent) {
	go func() {
		if err := p.PublishSessionCompleted(context.Background(), event); err != nil {
			p.logger.Printf("publish %s failed (session=%s, user=%s): %v",
				EventTypeSessionCompleted, event.SessionID, event.ExternalUserID, err)
		}
	}()
}
