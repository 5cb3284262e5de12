// pkg/event/event.go
// Package event provides a small publish-subscribe bus used to decouple the
// push transport from the job engine.
package event

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler is a function that handles an event.
type Handler func(ctx context.Context, data any)

// EventBus defines the interface for an event system.
type EventBus interface {
	Subscribe(event string, handler Handler)
	Publish(ctx context.Context, event string, data any)
}

// Bus is an in-process EventBus. Handlers run on their own goroutines.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	inflight    sync.WaitGroup
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]Handler),
	}
}

// Subscribe adds a handler for a specific event.
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[event] = append(b.subscribers[event], handler)
}

// Publish triggers all handlers subscribed to the event without waiting for them.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(ctx context.Context, event string, data any) {
	b.mu.RLock()
	handlers := append([]Handler{}, b.subscribers[event]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Str("component", "event").
						Str("event", event).
						Interface("panic", r).
						Msg("Event handler panicked")
				}
			}()
			h(ctx, data)
		}(handler)
	}
}

// Wait blocks until every handler started by Publish has returned.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
