package queries

import (
	"context"
	"fmt"
	"sort"
)

type queryHandler func(ctx context.Context, q Query) (any, error)

// Registry is a fixed key-to-handler table filled at startup. Registering
// the same key twice is a wiring bug and panics.
type Registry struct {
	handlers map[string]queryHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]queryHandler)}
}

// RegisterRaw attaches a raw handler function to the provided query key.
func (r *Registry) RegisterRaw(key string, handler queryHandler) {
	if key == "" {
		panic("queries: empty key registration")
	}
	if handler == nil {
		panic("queries: nil handler for " + key)
	}
	if _, exists := r.handlers[key]; exists {
		panic("queries: duplicate registration for " + key)
	}
	r.handlers[key] = handler
}

// Ask executes the registered handler for the provided query.
func (r *Registry) Ask(ctx context.Context, q Query) (any, error) {
	h, ok := r.handlers[q.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, q.Key())
	}
	return h(ctx, q)
}

// Keys lists registered query keys in lexical order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterHandler binds a strongly typed handler to key.
func RegisterHandler[Q Query, R any](registry *Registry, key string, handler Handler[Q, R]) {
	if registry == nil {
		panic("queries: nil registry")
	}
	registry.RegisterRaw(key, func(ctx context.Context, raw Query) (any, error) {
		q, ok := any(raw).(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, key)
		}
		return handler.Handle(ctx, q)
	})
}
