package commands

import (
	"context"
	"fmt"
	"sort"
)

type commandHandler func(ctx context.Context, cmd Command) (any, error)

// Registry is a fixed key-to-handler table filled at startup. Registering
// the same key twice is a wiring bug and panics.
type Registry struct {
	handlers map[string]commandHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]commandHandler)}
}

// RegisterRaw attaches a raw handler function to the provided command key.
func (r *Registry) RegisterRaw(key string, handler commandHandler) {
	if key == "" {
		panic("commands: empty key registration")
	}
	if handler == nil {
		panic("commands: nil handler for " + key)
	}
	if _, exists := r.handlers[key]; exists {
		panic("commands: duplicate registration for " + key)
	}
	r.handlers[key] = handler
}

// Dispatch executes the registered handler for the provided command.
func (r *Registry) Dispatch(ctx context.Context, cmd Command) (any, error) {
	h, ok := r.handlers[cmd.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return h(ctx, cmd)
}

// Keys lists registered command keys in lexical order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterHandler binds a strongly typed handler to key.
func RegisterHandler[C Command, R any](registry *Registry, key string, handler Handler[C, R]) {
	if registry == nil {
		panic("commands: nil registry")
	}
	registry.RegisterRaw(key, func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := any(raw).(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, key)
		}
		return handler.Handle(ctx, cmd)
	})
}
