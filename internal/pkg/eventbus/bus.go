// Package eventbus provides an in-process, synchronous publish/subscribe
// dispatcher. A Bus is constructed once by the application and passed to the
// components that publish or subscribe.
package eventbus

import (
	"context"
	"fmt"
	"sync"
)

// Handler reacts to one emitted event.
type Handler[T any] func(ctx context.Context, payload T) error

// Bus dispatches events of payload type T to handlers registered by name.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers map[string][]Handler[T]
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{handlers: make(map[string][]Handler[T])}
}

// Register appends h to the handlers for event. Handlers run in registration
// order; registering the same handler twice makes it run twice.
func (b *Bus[T]) Register(event string, h Handler[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Emit calls every handler registered for event on the calling goroutine.
// The first handler error stops dispatch and is returned to the caller.
// Emitting an event with no handlers is a no-op.
func (b *Bus[T]) Emit(ctx context.Context, event string, payload T) error {
	b.mu.RLock()
	hs := b.handlers[event]
	b.mu.RUnlock()

	for i, h := range hs {
		if err := h(ctx, payload); err != nil {
			return fmt.Errorf("eventbus: handler %d for %q: %w", i, event, err)
		}
	}
	return nil
}

// Handlers reports how many handlers are registered for event.
func (b *Bus[T]) Handlers(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
