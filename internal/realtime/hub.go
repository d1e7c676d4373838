// internal/realtime/hub.go
package realtime

import (
	"slices"
	"sync"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/metrics"
	"mandir-fund/internal/util"
)

// Handler receives change events for a subscription.
type Handler func(domain.ChangeEvent)

type subscription struct {
	id      uint64
	table   string
	events  []domain.ChangeType
	handler Handler
}

// Hub fans change events out to in-process subscribers. Handlers run
// synchronously on the dispatching goroutine, so every subscriber observes
// events in the order they were committed.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers handler for the given table and change types. An empty
// events list means every change type. The returned function removes the
// subscription and is safe to call more than once.
func (h *Hub) Subscribe(table string, events []domain.ChangeType, handler Handler) (unsubscribe func()) {
	if len(events) == 0 {
		events = domain.AllChangeTypes
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, table: table, events: slices.Clone(events), handler: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.subs = slices.DeleteFunc(h.subs, func(s subscription) bool { return s.id == id })
		})
	}
}

// Dispatch delivers ev to every matching subscriber. A panicking handler is
// logged and does not stop delivery to the others.
func (h *Hub) Dispatch(ev domain.ChangeEvent) {
	h.mu.RLock()
	targets := make([]subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if s.table == ev.Table && slices.Contains(s.events, ev.Type) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	metrics.ChangeEventsDispatched.WithLabelValues(string(ev.Type)).Inc()
	for _, s := range targets {
		h.deliver(s, ev)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) deliver(s subscription, ev domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			util.GetLogger().Error().
				Interface("panic", r).
				Uint64("subscription", s.id).
				Str("type", string(ev.Type)).
				Msg("Change handler panicked")
		}
	}()
	s.handler(ev)
}
