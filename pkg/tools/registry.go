// Package tools provides the tool registry consumed by the MCP server's
// tools/list and tools/call methods, plus the default mailbox-backed
// registry configuration.
package tools

import (
	"context"
	"encoding/json"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/mcperrors"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
)

// Registry enumerates and executes named tools. Implementations must be
// safe for concurrent use; List must return a snapshot that callers may
// mutate freely.
type Registry interface {
	// List returns descriptors for every registered tool.
	List() []protocol.Tool

	// Call executes the named tool. Unknown names fail with an invalid
	// params error; execution failures surface as application errors.
	Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}

// ToolFunc executes one tool invocation.
type ToolFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

type toolEntry struct {
	descriptor protocol.Tool
	invoke     ToolFunc
}

// StaticRegistry is a Registry built from a fixed table of tools. The table
// is populated at construction time and never mutated afterwards, so reads
// need no locking.
type StaticRegistry struct {
	order   []string
	entries map[string]toolEntry
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		entries: make(map[string]toolEntry),
	}
}

// Register adds a tool. Registering a duplicate name replaces the earlier
// entry but keeps its position, preserving the uniqueness invariant of
// tools/list.
func (r *StaticRegistry) Register(descriptor protocol.Tool, fn ToolFunc) {
	if _, exists := r.entries[descriptor.Name]; !exists {
		r.order = append(r.order, descriptor.Name)
	}
	r.entries[descriptor.Name] = toolEntry{descriptor: descriptor, invoke: fn}
}

// List returns descriptors in registration order.
func (r *StaticRegistry) List() []protocol.Tool {
	out := make([]protocol.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

// Call executes the named tool.
func (r *StaticRegistry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, mcperrors.NewUnknownTool(name)
	}

	result, err := entry.invoke(ctx, args)
	if err != nil {
		if _, typed := mcperrors.As(err); typed {
			return nil, err
		}
		return nil, mcperrors.NewToolExecution(name, err)
	}
	return result, nil
}
