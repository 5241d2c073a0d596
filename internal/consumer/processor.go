// Package consumer drains training events from the broker queue and feeds
// them to analytics handlers.
package consumer

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"example.com/training/internal/broker"
)

// Handler processes decoded session-completion envelopes.
type Handler interface {
	HandleSessionCompleted(ctx context.Context, envelope broker.Envelope) error
}

// Processor pulls deliveries from a consume channel, decodes them and
// dispatches to the handler. Acknowledgement semantics: success acks, a body
// that cannot be decoded is dropped without requeue, and a handler failure is
// requeued exactly once before being dropped.
type Processor struct {
	handler Handler
	logger  *log.Logger
}

// Option configures optional Processor behaviour.
type Option func(*Processor)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor constructs a Processor.
func NewProcessor(handler Handler, opts ...Option) *Processor {
	p := &Processor{
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains deliveries until the channel closes or the context is cancelled.
func (p *Processor) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			p.process(ctx, delivery)
		}
	}
}

func (p *Processor) process(ctx context.Context, delivery amqp.Delivery) {
	var envelope broker.Envelope
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		p.logger.Printf("dropping undecodable delivery (tag=%d): %v", delivery.DeliveryTag, err)
		recordConsumeFailure("decode")
		p.reject(delivery, false)
		return
	}

	switch envelope.EventType {
	case broker.EventTypeSessionCompleted:
		if err := p.handler.HandleSessionCompleted(ctx, envelope); err != nil {
			p.logger.Printf("handler failed for %s (user=%s, redelivered=%t): %v",
				envelope.EventType, envelope.UserExternalID, delivery.Redelivered, err)
			recordConsumeFailure("handler")
			// one retry via requeue, then drop
			p.reject(delivery, !delivery.Redelivered)
			return
		}
	default:
		p.logger.Printf("ignoring unknown event type %q", envelope.EventType)
		recordConsumeFailure("unknown_type")
	}

	if err := delivery.Ack(false); err != nil {
		p.logger.Printf("ack failed (tag=%d): %v", delivery.DeliveryTag, err)
		return
	}
	recordConsumed(envelope.EventType)
}

func (p *Processor) reject(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		p.logger.Printf("nack failed (tag=%d): %v", delivery.DeliveryTag, err)
	}
}
