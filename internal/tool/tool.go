// Package tool holds the tool handlers the server can dispatch to and the
// immutable registry that maps tool names onto them.
package tool

import (
	"context"
	"fmt"
	"sort"
)

// Handler is a single callable tool.
type Handler interface {
	// Name is the tool_name clients use to select this tool.
	Name() string

	Description() string

	// Parameters returns the JSON schema of the parameters object.
	Parameters() map[string]interface{}

	// Call runs the tool. Handlers check the presence and type of every
	// parameter they read and report bad input as *mcp.Fault; any other
	// error is treated as a server fault.
	Call(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// Registry maps tool names to handlers. It is built once and never mutated,
// so it can be shared across concurrent requests without locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a registry from the given handlers.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		name := h.Name()
		if name == "" {
			return nil, fmt.Errorf("tool handler %T has an empty name", h)
		}
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("tool %s already registered", name)
		}
		r.handlers[name] = h
	}
	return r, nil
}

// Default returns the registry with every built-in tool.
func Default() *Registry {
	r, err := NewRegistry(NewTimeInTimezone(SystemZones{}, nil))
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// List returns the handlers sorted by name.
func (r *Registry) List() []Handler {
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
