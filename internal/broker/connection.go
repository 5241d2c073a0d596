// Package broker owns the long-lived AMQP connection and delivers domain
// events to the durable topic exchange.
package broker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// State tracks the connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String renders the state for logs.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned for publishes attempted while the manager has
// no healthy channel. Such publishes are dropped, never buffered: callers on
// the write path log the failure and move on.
var ErrNotConnected = errors.New("broker not connected")

// ErrPublishNacked is returned when the broker refuses to confirm a publish.
var ErrPublishNacked = errors.New("broker rejected publish confirmation")

// errManagerClosed signals that Disconnect tore the manager down while a dial
// was in flight. The freshly dialed resources are discarded, not installed.
var errManagerClosed = errors.New("connection manager closed")

// Confirmation is the pending broker acknowledgement for one publish.
type Confirmation interface {
	Wait() bool
}

// Channel is the slice of the AMQP channel surface the manager drives.
type Channel interface {
	Confirm(noWait bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (Confirmation, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Connection is the slice of the AMQP connection surface the manager drives.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Dialer opens a broker connection. Swapped for a stub in tests.
type Dialer func(url string, heartbeat time.Duration) (Connection, error)

// Config captures broker tunables owned by the config package.
type Config struct {
	URL               string
	Exchange          string
	ExchangeType      string
	Heartbeat         time.Duration
	ReconnectInterval time.Duration
}

// ConnectionManager keeps one connection and one channel alive for the
// process lifetime, re-asserting the durable topic exchange on every
// (re)connection and retrying at a fixed interval forever on failure. All
// publishes share the single channel; the manager serializes them so the wire
// protocol is never driven concurrently.
type ConnectionManager struct {
	cfg    Config
	dial   Dialer
	logger *log.Logger

	mu      sync.Mutex
	state   State
	conn    Connection
	channel Channel

	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	started   bool
}

// ManagerOption configures optional behaviour for the ConnectionManager.
type ManagerOption func(*ConnectionManager)

// WithDialer overrides how connections are opened.
func WithDialer(dial Dialer) ManagerOption {
	return func(m *ConnectionManager) {
		m.dial = dial
	}
}

// WithManagerLogger overrides the logger.
func WithManagerLogger(logger *log.Logger) ManagerOption {
	return func(m *ConnectionManager) {
		m.logger = logger
	}
}

// NewConnectionManager constructs a ConnectionManager. Connect must be called
// once at process start before publishing.
func NewConnectionManager(cfg Config, opts ...ManagerOption) *ConnectionManager {
	m := &ConnectionManager{
		cfg:     cfg,
		dial:    amqpDial,
		logger:  log.New(log.Writer(), "[broker] ", log.LstdFlags|log.Lshortfile),
		state:   StateDisconnected,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current lifecycle state.
func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect launches the supervision loop. It returns after the first connect
// attempt has been made; a failed first attempt is not an error, the loop
// keeps retrying at the configured fixed interval until shut down.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	attempted := make(chan struct{})
	go m.run(ctx, attempted)

	select {
	case <-attempted:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (m *ConnectionManager) run(ctx context.Context, attempted chan struct{}) {
	defer close(m.done)
	first := true

	for {
		connClosed, chClosed, err := m.establish()
		if first {
			close(attempted)
			first = false
		}
		if errors.Is(err, errManagerClosed) {
			return
		}
		if err != nil {
			m.logger.Printf("connect to %q failed: %v (retrying in %s)", m.cfg.Exchange, err, m.cfg.ReconnectInterval)
			recordConnectFailure()
			m.setState(StateReconnecting)
			select {
			case <-time.After(m.cfg.ReconnectInterval):
				continue
			case <-m.closing:
				return
			case <-ctx.Done():
				return
			}
		}

		select {
		case connErr := <-connClosed:
			if connErr != nil {
				m.logger.Printf("connection lost: %v", connErr)
			}
			m.teardown()
			m.setState(StateReconnecting)
			select {
			case <-time.After(m.cfg.ReconnectInterval):
			case <-m.closing:
				return
			case <-ctx.Done():
				return
			}
		case chErr := <-chClosed:
			if chErr != nil {
				m.logger.Printf("channel lost: %v", chErr)
			}
			m.teardown()
			m.setState(StateReconnecting)
			select {
			case <-time.After(m.cfg.ReconnectInterval):
			case <-m.closing:
				return
			case <-ctx.Done():
				return
			}
		case <-m.closing:
			return
		case <-ctx.Done():
			m.closeResources()
			return
		}
	}
}

func (m *ConnectionManager) closeResources() {
	m.mu.Lock()
	channel := m.channel
	conn := m.conn
	m.channel = nil
	m.conn = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if channel != nil {
		if err := channel.Close(); err != nil {
			m.logger.Printf("channel close: %v", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Printf("connection close: %v", err)
		}
	}
}

// establish dials, opens the shared confirm-mode channel, and asserts the
// durable topic exchange. Asserting an existing exchange with matching
// parameters is a no-op on the broker side.
func (m *ConnectionManager) establish() (chan *amqp.Error, chan *amqp.Error, error) {
	conn, err := m.dial(m.cfg.URL, m.cfg.Heartbeat)
	if err != nil {
		return nil, nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, err
	}
	if err := channel.ExchangeDeclare(m.cfg.Exchange, m.cfg.ExchangeType, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, err
	}

	// A channel can die without taking the connection with it, so both close
	// notifications feed the supervision loop.
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := channel.NotifyClose(make(chan *amqp.Error, 1))

	m.mu.Lock()
	// Disconnect may have torn everything down while the dial was in flight;
	// installing the fresh connection now would resurrect a closed manager.
	select {
	case <-m.closing:
		m.mu.Unlock()
		channel.Close()
		conn.Close()
		return nil, nil, errManagerClosed
	default:
	}
	m.conn = conn
	m.channel = channel
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	recordConnected()
	m.logger.Printf("connected, exchange %q (%s) asserted", m.cfg.Exchange, m.cfg.ExchangeType)
	return connClosed, chClosed, nil
}

// teardown drops the current channel and connection after a close
// notification. Closing is best effort: a channel-level failure leaves the
// connection alive and it must not be leaked across the reconnect.
func (m *ConnectionManager) teardown() {
	m.mu.Lock()
	channel := m.channel
	conn := m.conn
	m.channel = nil
	m.conn = nil
	m.mu.Unlock()

	if channel != nil {
		_ = channel.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// Publish sends one message to the exchange on the shared channel and waits
// for the broker confirm. The channel mutex serializes concurrent callers, so
// per-process publish order is the order Publish was entered.
func (m *ConnectionManager) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	m.mu.Lock()
	if m.state != StateConnected || m.channel == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	confirmation, err := m.channel.PublishWithDeferredConfirmWithContext(ctx, m.cfg.Exchange, routingKey, false, false, msg)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if !confirmation.Wait() {
		return ErrPublishNacked
	}
	return nil
}

// Disconnect closes the channel then the connection and stops the supervision
// loop. Idempotent and safe to call when Connect never ran or never
// succeeded.
func (m *ConnectionManager) Disconnect() {
	m.closeOnce.Do(func() {
		close(m.closing)

		m.mu.Lock()
		started := m.started
		m.mu.Unlock()

		m.closeResources()
		if started {
			<-m.done
		}
	})
}

func (m *ConnectionManager) setState(next State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStateLocked(next)
}

func (m *ConnectionManager) setStateLocked(next State) {
	if m.state != next {
		m.state = next
		recordState(next)
	}
}
