package event

import (
	"context"
	"strings"
	"sync"

	"github.com/induservicios/backend/internal/domain/shared"
)

// HandlerRegistry manages event handler registrations
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler // eventType -> handlers
	prefixes map[string][]shared.EventHandler // "catalog." -> handlers, registered as "catalog.*"
	wildcard []shared.EventHandler
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]shared.EventHandler),
		prefixes: make(map[string][]shared.EventHandler),
	}
}

// Register adds a handler for event types. A type ending in ".*" matches
// every event with that prefix; "*" or no type at all matches everything.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}

	for _, eventType := range eventTypes {
		switch {
		case eventType == "*":
			r.wildcard = append(r.wildcard, handler)
		case strings.HasSuffix(eventType, ".*"):
			prefix := strings.TrimSuffix(eventType, "*")
			r.prefixes[prefix] = append(r.prefixes[prefix], handler)
		default:
			r.handlers[eventType] = append(r.handlers[eventType], handler)
		}
	}
}

// Unregister removes a handler from all event types
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for _, m := range []map[string][]shared.EventHandler{r.handlers, r.prefixes} {
		for key, handlers := range m {
			m[key] = removeHandler(handlers, handler)
			if len(m[key]) == 0 {
				delete(m, key)
			}
		}
	}
}

// GetHandlers returns the handlers matching an event type: exact, prefix
// and wildcard registrations, each handler at most once.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]shared.EventHandler, 0, len(r.handlers[eventType])+len(r.wildcard))
	seen := make(map[shared.EventHandler]struct{})
	add := func(hs []shared.EventHandler) {
		for _, h := range hs {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			result = append(result, h)
		}
	}

	add(r.handlers[eventType])
	for prefix, hs := range r.prefixes {
		if strings.HasPrefix(eventType, prefix) {
			add(hs)
		}
	}
	add(r.wildcard)
	return result
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}

// HandlerFunc adapts a function into an EventHandler
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event shared.DomainEvent) error
}

// Handle calls Fn
func (h *HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.Fn(ctx, event)
}

// EventTypes returns Types
func (h *HandlerFunc) EventTypes() []string {
	return h.Types
}
