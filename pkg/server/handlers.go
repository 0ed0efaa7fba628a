package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/mcperrors"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/observability"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/tools"
)

// CoreHandlers implements the MCP method set over a session store and a
// tool registry.
type CoreHandlers struct {
	sessions *SessionStore
	registry tools.Registry
	logger   logging.Logger
	metrics  *observability.Metrics
}

// NewCoreHandlers wires the standard method handlers.
func NewCoreHandlers(sessions *SessionStore, registry tools.Registry, logger logging.Logger, metrics *observability.Metrics) *CoreHandlers {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CoreHandlers{
		sessions: sessions,
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// Table returns the dispatch table for these handlers.
func (h *CoreHandlers) Table() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		protocol.MethodInitialize:        h.Initialize,
		protocol.MethodListTools:         h.ToolsList,
		protocol.MethodCallTool:          h.ToolsCall,
		protocol.MethodPing:              h.Ping,
		protocol.NotificationInitialized: h.Initialized,
	}
}

// Initialize negotiates the protocol and mints a session. The session id is
// duplicated into _meta so clients that cannot read response headers still
// get it.
func (h *CoreHandlers) Initialize(ctx context.Context, params json.RawMessage, _ string) (interface{}, error) {
	var p protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperrors.NewInvalidParams("malformed initialize params")
		}
	}

	sess := h.sessions.Create()

	fields := []logging.Field{logging.String("session_id", sess.ID)}
	if p.ClientInfo != nil {
		fields = append(fields,
			logging.String("client", p.ClientInfo.Name),
			logging.String("client_version", p.ClientInfo.Version))
	}
	h.logger.Info("session initialized", fields...)

	return protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		ServerInfo: protocol.ServerInfo{
			Name:    protocol.ServerName,
			Version: protocol.ServerVersion,
		},
		Meta: &protocol.ResultMeta{SessionID: sess.ID},
	}, nil
}

// Initialized acknowledges the client's initialized notification.
func (h *CoreHandlers) Initialized(ctx context.Context, params json.RawMessage, sessionID string) (interface{}, error) {
	h.logger.Debug("client initialized", logging.String("session_id", sessionID))
	return nil, nil
}

// ToolsList returns the registry's tool descriptors.
func (h *CoreHandlers) ToolsList(ctx context.Context, _ json.RawMessage, _ string) (interface{}, error) {
	return protocol.ListToolsResult{Tools: h.registry.List()}, nil
}

// ToolsCall executes one tool and frames its output as MCP content.
func (h *CoreHandlers) ToolsCall(ctx context.Context, params json.RawMessage, _ string) (interface{}, error) {
	var p protocol.CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperrors.NewInvalidParams("malformed tools/call params")
	}
	if p.Name == "" {
		return nil, mcperrors.NewInvalidParams("tool name is required")
	}

	start := time.Now()
	output, err := h.registry.Call(ctx, p.Name, p.Arguments)
	elapsed := time.Since(start)

	if err != nil {
		h.metrics.RecordToolCall(p.Name, "error", elapsed)
		return nil, err
	}
	h.metrics.RecordToolCall(p.Name, "ok", elapsed)

	h.logger.Debug("tool executed",
		logging.String("tool", p.Name),
		logging.Duration("duration", elapsed))
	return protocol.TextResult(output), nil
}

// Ping echoes a timestamp for liveness checks.
func (h *CoreHandlers) Ping(ctx context.Context, params json.RawMessage, _ string) (interface{}, error) {
	var p protocol.PingParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, mcperrors.NewInvalidParams("malformed ping params")
		}
	}
	ts := p.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return protocol.PingResult{Timestamp: ts}, nil
}
