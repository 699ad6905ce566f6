// Package realtime fans change events out to in-process subscribers, other
// processes (through Redis) and dashboard browsers (through websockets).
package realtime

import (
	"context"
	"sync"

	"github.com/example/salon-scheduler/internal/persistence"
)

// Hub is an in-process persistence.ChangeFeed. Callbacks run synchronously on
// the publishing goroutine and must not block.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[persistence.Entity]map[int]func(persistence.ChangeEvent)
}

var _ persistence.ChangeFeed = (*Hub)(nil)

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[persistence.Entity]map[int]func(persistence.ChangeEvent))}
}

// Publish delivers event to every subscriber of its entity.
func (h *Hub) Publish(_ context.Context, event persistence.ChangeEvent) error {
	h.mu.RLock()
	callbacks := make([]func(persistence.ChangeEvent), 0, len(h.subs[event.Entity]))
	for _, fn := range h.subs[event.Entity] {
		callbacks = append(callbacks, fn)
	}
	h.mu.RUnlock()

	for _, fn := range callbacks {
		fn(event)
	}
	return nil
}

// Subscribe registers fn for entity.
func (h *Hub) Subscribe(entity persistence.Entity, fn func(persistence.ChangeEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[entity] == nil {
		h.subs[entity] = make(map[int]func(persistence.ChangeEvent))
	}
	h.subs[entity][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[entity], id)
		})
	}
}

// Subscribers returns the number of callbacks registered for entity.
func (h *Hub) Subscribers(entity persistence.Entity) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[entity])
}
