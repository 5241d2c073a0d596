// Package events provides the synchronous in-process publish/subscribe
// registry used by components that do not need the broker.
package events

import (
	"context"
	"log"
	"sync"

	"example.com/training/internal/domain"
)

// SessionCompletedHandler consumes the derived event on the emitting goroutine.
type SessionCompletedHandler func(ctx context.Context, event domain.SessionCompletedEvent)

// Option configures optional behaviour for the Emitter.
type Option func(*Emitter)

// WithLogger overrides the logger used to report subscriber failures.
func WithLogger(logger *log.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// Emitter is a typed handler registry. Handlers run synchronously in
// registration order; a handler that panics is logged and skipped, never
// allowed to reach the emitting caller or the remaining handlers.
type Emitter struct {
	mu        sync.RWMutex
	completed []SessionCompletedHandler
	logger    *log.Logger
}

// NewEmitter constructs an Emitter.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{
		logger: log.New(log.Writer(), "[events] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubscribeSessionCompleted registers a handler for the process lifetime.
// Subscribers register once at startup; there is no teardown.
func (e *Emitter) SubscribeSessionCompleted(handler SessionCompletedHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, handler)
}

// EmitSessionCompleted invokes every registered handler before returning.
// Subscribers must not be relied on for write-path correctness.
func (e *Emitter) EmitSessionCompleted(ctx context.Context, event domain.SessionCompletedEvent) {
	e.mu.RLock()
	handlers := e.completed
	e.mu.RUnlock()

	for _, handler := range handlers {
		e.invoke(ctx, handler, event)
	}
}

func (e *Emitter) invoke(ctx context.Context, handler SessionCompletedHandler, event domain.SessionCompletedEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("session.completed subscriber panic (session=%s): %v", event.SessionID, r)
			recordHandlerFailure()
		}
	}()
	handler(ctx, event)
}
