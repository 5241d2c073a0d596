package broker

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpDial is the production Dialer, adapting amqp091 concrete types to the
// manager's narrow interfaces.
func amqpDial(url string, heartbeat time.Duration) (Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	channel, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChannel{channel: channel}, nil
}

func (c *amqpConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.conn.NotifyClose(receiver)
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

type amqpChannel struct {
	channel *amqp.Channel
}

func (c *amqpChannel) Confirm(noWait bool) error {
	return c.channel.Confirm(noWait)
}

func (c *amqpChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return c.channel.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *amqpChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (Confirmation, error) {
	return c.channel.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (c *amqpChannel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.channel.NotifyClose(receiver)
}

func (c *amqpChannel) Close() error {
	return c.channel.Close()
}
