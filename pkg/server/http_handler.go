package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/propagation"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/observability"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
)

// MCPHandler is the HTTP entry point for the MCP endpoint. It guards the
// Origin header, negotiates the response framing, and hands the body to the
// dispatcher.
type MCPHandler struct {
	guard        *OriginGuard
	dispatcher   *Dispatcher
	hub          *SSEHub
	logger       logging.Logger
	tracer       *observability.Tracer
	maxBodyBytes int64
}

// NewMCPHandler wires the endpoint handler.
func NewMCPHandler(guard *OriginGuard, dispatcher *Dispatcher, hub *SSEHub, logger logging.Logger, tracer *observability.Tracer, maxBodyBytes int64) *MCPHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &MCPHandler{
		guard:        guard,
		dispatcher:   dispatcher,
		hub:          hub,
		logger:       logger,
		tracer:       tracer,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.guard.Allow(origin) {
		h.logger.Warn("rejected origin", logging.String("origin", origin))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintln(w, "origin not allowed")
		return
	}

	mode, err := Negotiate(r.Method, r.Header.Get("Accept"))
	if err != nil {
		te := err.(*TransportError)
		http.Error(w, te.Reason, te.Status)
		return
	}

	sessionID := r.Header.Get(protocol.HeaderSessionID)
	ctx := h.tracer.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if mode == ModeSSEChannel {
		if err := h.hub.Serve(ctx, w, sessionID); err != nil {
			h.logger.Warn("sse channel failed", logging.ErrorField(err))
		}
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	resp := h.dispatcher.Dispatch(ctx, body, sessionID)
	if resp == nil {
		// Notification: acknowledged, nothing to say.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if sid := sessionIDFromResult(resp); sid != "" {
		w.Header().Set(protocol.HeaderSessionID, sid)
	} else if sessionID != "" && resp.Error == nil {
		w.Header().Set(protocol.HeaderSessionID, sessionID)
	}

	switch mode {
	case ModeSSEResponse:
		h.writeSSEResponse(w, resp)
	default:
		h.writeJSONResponse(w, resp)
	}
}

func (h *MCPHandler) writeJSONResponse(w http.ResponseWriter, resp *protocol.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write response", logging.ErrorField(err))
	}
}

// writeSSEResponse frames one response as a single SSE data event and ends
// the stream.
func (h *MCPHandler) writeSSEResponse(w http.ResponseWriter, resp *protocol.Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("failed to marshal response", logging.ErrorField(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// sessionIDFromResult pulls _meta.sessionId out of a result, if present.
// Initialize responses carry the freshly minted id there, and the transport
// mirrors it into the Mcp-Session-Id header.
func sessionIDFromResult(resp *protocol.Response) string {
	if resp.Error != nil || len(resp.Result) == 0 {
		return ""
	}
	var probe struct {
		Meta struct {
			SessionID string `json:"sessionId"`
		} `json:"_meta"`
	}
	if err := json.Unmarshal(resp.Result, &probe); err != nil {
		return ""
	}
	return probe.Meta.SessionID
}
