// Package satellite implements the worker side of the coordination protocol:
// registration with the controller, heartbeat liveness, and dispatch of
// remotely invoked commands.
package satellite

import (
	"context"
	"fmt"
	"sort"
)

// Handler is an externally invocable worker command. The returned string is
// sent back to the caller as the command result; a non-nil error is fatal to
// the whole worker. Handlers that want non-fatal failure reporting must catch
// their own errors and encode them in the result.
type Handler func(ctx context.Context) (string, error)

// Registry maps command names to handlers. It is populated when a worker type
// is defined and must not be mutated once the worker is running.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty command registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register exposes a command under the given name. Registering a duplicate
// name is a programming error and panics.
func (r *Registry) Register(name string, handler Handler) {
	if name == "" {
		panic("satellite: command name must not be empty")
	}
	if handler == nil {
		panic(fmt.Sprintf("satellite: nil handler for command %q", name))
	}
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("satellite: command %q registered twice", name))
	}
	r.handlers[name] = handler
}

// Lookup returns the handler registered under name
func (r *Registry) Lookup(name string) (Handler, bool) {
	handler, ok := r.handlers[name]
	return handler, ok
}

// Commands returns the registered command names, sorted
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many commands are registered
func (r *Registry) Len() int {
	return len(r.handlers)
}
