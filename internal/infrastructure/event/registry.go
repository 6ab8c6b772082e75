package event

import (
	"slices"
	"sort"
	"sync"

	"github.com/itam/backend/internal/domain/shared"
)

// anyEvent is the subscription key of handlers that receive every event
const anyEvent = "*"

// HandlerRegistry keeps the subscriptions of a bus in registration order
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs map[string][]shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{subs: make(map[string][]shared.EventHandler)}
}

// Register subscribes handler to eventTypes, or to every event when none are given.
// Registering the same handler twice for a type is a no-op.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{anyEvent}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eventType := range eventTypes {
		if slices.Contains(r.subs[eventType], handler) {
			continue
		}
		r.subs[eventType] = append(r.subs[eventType], handler)
	}
}

// Unregister removes handler from every subscription
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eventType, handlers := range r.subs {
		handlers = slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool {
			return h == handler
		})
		if len(handlers) == 0 {
			delete(r.subs, eventType)
			continue
		}
		r.subs[eventType] = handlers
	}
}

// GetHandlers returns the handlers of eventType followed by the catch-all handlers
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed, all := r.subs[eventType], r.subs[anyEvent]
	result := make([]shared.EventHandler, 0, len(typed)+len(all))
	result = append(result, typed...)
	return append(result, all...)
}

// Subscriptions returns the number of handlers per event type, "*" counting
// the catch-all handlers
func (r *HandlerRegistry) Subscriptions() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.subs))
	for eventType, handlers := range r.subs {
		counts[eventType] = len(handlers)
	}
	return counts
}

// EventTypes returns the event types with at least one typed subscriber
func (r *HandlerRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.subs))
	for eventType := range r.subs {
		if eventType != anyEvent {
			types = append(types, eventType)
		}
	}
	sort.Strings(types)
	return types
}
