// Package dispatch validates incoming tool-call envelopes and routes them to
// tool handlers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcpguard/toolcall/internal/detection"
	"github.com/mcpguard/toolcall/internal/mcp"
	"github.com/mcpguard/toolcall/internal/tool"
)

// Guard inspects parameters before a handler runs.
type Guard interface {
	Detect(params map[string]interface{}) []detection.Result
}

// Dispatcher runs one request through parse, timestamp validation, routing
// and dispatch, stopping at the first failure. It holds no per-request state.
type Dispatcher struct {
	registry *tool.Registry
	guard    Guard
	newID    func() string
}

type Option func(*Dispatcher)

// WithGuard scans parameters with g once the tool has been resolved.
func WithGuard(g Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

func New(registry *tool.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleBody decodes a raw request body and dispatches it.
func (d *Dispatcher) HandleBody(ctx context.Context, body []byte) (*mcp.ToolCallResponse, *mcp.Fault) {
	req, fault := mcp.DecodeRequest(body)
	if fault != nil {
		return nil, fault
	}
	return d.Handle(ctx, req)
}

// Handle dispatches a decoded request. Exactly one of the return values is non-nil.
func (d *Dispatcher) Handle(ctx context.Context, req mcp.ToolCallRequest) (*mcp.ToolCallResponse, *mcp.Fault) {
	if _, err := mcp.ParseTimestamp(req.Timestamp); err != nil {
		return nil, mcp.Invalid("Invalid timestamp format")
	}

	// Route by tool name; parameters are the handler's to check
	h, ok := d.registry.Lookup(req.ToolName)
	if !ok {
		return nil, mcp.Invalid("Unknown tool: %s", req.ToolName)
	}

	// Classified faults keep their status, anything else becomes a 500
	result, err := d.invoke(ctx, h, req.Parameters)
	if err != nil {
		var fault *mcp.Fault
		if errors.As(err, &fault) {
			return nil, fault
		}
		return nil, mcp.Internal(err)
	}

	return &mcp.ToolCallResponse{
		Result:    result,
		RequestID: d.newID(),
	}, nil
}

func (d *Dispatcher) invoke(ctx context.Context, h tool.Handler, params map[string]interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	if d.guard != nil {
		if findings := d.guard.Detect(params); len(findings) > 0 {
			return nil, blocked(findings)
		}
	}
	return h.Call(ctx, params)
}

func blocked(findings []detection.Result) *mcp.Fault {
	seen := make(map[string]bool)
	var descriptions []string
	for _, f := range findings {
		if seen[f.Description] {
			continue
		}
		seen[f.Description] = true
		descriptions = append(descriptions, f.Description)
	}
	return mcp.Invalid("Blocked: parameters contain sensitive information: %s", strings.Join(descriptions, ", "))
}
