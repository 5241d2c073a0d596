package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"example.com/training/internal/domain"
)

type capturePublisher struct {
	mu      sync.Mutex
	err     error
	keys    []string
	msgs    []amqp.Publishing
	entered chan struct{}
}

func (c *capturePublisher) Publish(_ context.Context, routingKey string, msg amqp.Publishing) error {
	c.mu.Lock()
	c.keys = append(c.keys, routingKey)
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	return c.err
}

func (c *capturePublisher) last() (string, amqp.Publishing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[len(c.keys)-1], c.msgs[len(c.msgs)-1]
}

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestPublishSessionCompletedEnvelope(t *testing.T) {
	channel := &capturePublisher{}
	now := time.Date(2026, time.May, 10, 12, 30, 0, 0, time.UTC)
	publisher := NewPublisher(channel,
		WithPublisherLogger(log.New(testWriter{t}, "", 0)),
		withClock(func() time.Time { return now }),
	)

	event := domain.SessionCompletedEvent{
		SessionID:      "sess-1",
		ExternalUserID: "user-1",
		WorkoutID:      strPtr("workout-9"),
		Date:           time.Date(2026, time.May, 10, 7, 0, 0, 0, time.UTC),
		DurationSec:    3600,
		Notes:          strPtr("solid day"),
		TotalTonnage:   400,
		TotalVolume:    18,
		AverageRPE:     floatPtr(7),
	}

	require.NoError(t, publisher.PublishSessionCompleted(context.Background(), event))

	key, msg := channel.last()
	require.Equal(t, "training.session.completed", key)
	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &envelope))
	require.Equal(t, "training.session.completed", envelope.EventType)
	require.Equal(t, "2026-05-10T12:30:00Z", envelope.Timestamp)
	require.Equal(t, "user-1", envelope.UserExternalID)
	require.NotNil(t, envelope.Session)
	require.Equal(t, "sess-1", envelope.Session.SessionID)
	require.Equal(t, "workout-9", *envelope.Session.WorkoutID)
	require.Equal(t, "2026-05-10T07:00:00Z", envelope.Session.Date)
	require.Equal(t, 3600, envelope.Session.DurationSec)
	require.Equal(t, float64(7), *envelope.Session.PerceivedEffort)
	require.Equal(t, "solid day", *envelope.Session.Notes)
}

func TestPublishSessionCompletedOmitsUndefinedFields(t *testing.T) {
	channel := &capturePublisher{}
	publisher := NewPublisher(channel, WithPublisherLogger(log.New(testWriter{t}, "", 0)))

	event := domain.SessionCompletedEvent{
		SessionID:      "sess-2",
		ExternalUserID: "user-1",
		Date:           time.Date(2026, time.May, 11, 7, 0, 0, 0, time.UTC),
		DurationSec:    1800,
	}

	require.NoError(t, publisher.PublishSessionCompleted(context.Background(), event))

	_, msg := channel.last()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(msg.Body, &raw))
	var session map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["session"], &session))
	require.NotContains(t, session, "workoutId")
	require.NotContains(t, session, "perceivedEffort")
	require.NotContains(t, session, "notes")
}

func TestPublishAsyncNeverSurfacesFailure(t *testing.T) {
	channel := &capturePublisher{
		err:     errors.New("broker gone"),
		entered: make(chan struct{}, 1),
	}
	publisher := NewPublisher(channel, WithPublisherLogger(log.New(testWriter{t}, "", 0)))

	require.NotPanics(t, func() {
		publisher.PublishSessionCompletedAsync(domain.SessionCompletedEvent{
			SessionID:      "sess-3",
			ExternalUserID: "user-1",
		})
	})

	select {
	case <-channel.entered:
	case <-time.After(time.Second):
		t.Fatal("async publish never ran")
	}
}

func TestPublishAsyncDeliversSameEnvelope(t *testing.T) {
	channel := &capturePublisher{entered: make(chan struct{}, 1)}
	publisher := NewPublisher(channel, WithPublisherLogger(log.New(testWriter{t}, "", 0)))

	publisher.PublishSessionCompletedAsync(domain.SessionCompletedEvent{
		SessionID:      "sess-4",
		ExternalUserID: "user-2",
		Date:           time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC),
	})

	select {
	case <-channel.entered:
	case <-time.After(time.Second):
		t.Fatal("async publish never ran")
	}

	key, msg := channel.last()
	require.Equal(t, "training.session.completed", key)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &envelope))
	require.Equal(t, "sess-4", envelope.Session.SessionID)
	require.Equal(t, "user-2", envelope.UserExternalID)
}
