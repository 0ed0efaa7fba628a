package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/mcperrors"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/observability"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
)

// HandlerFunc executes one JSON-RPC method. sessionID is the id the client
// presented, or empty. The returned value is marshaled into the response's
// result field.
type HandlerFunc func(ctx context.Context, params json.RawMessage, sessionID string) (interface{}, error)

// Dispatcher parses raw JSON-RPC messages and routes them to a static
// handler table. It knows nothing about HTTP; the transport layer decides
// how to frame the responses it returns.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	sessions *SessionStore
	logger   logging.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// NewDispatcher creates a dispatcher over the given handler table. sessions
// is consulted when a request presents a session id; metrics and tracer may
// be nil.
func NewDispatcher(handlers map[string]HandlerFunc, sessions *SessionStore, logger logging.Logger, metrics *observability.Metrics, tracer *observability.Tracer) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		handlers: handlers,
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// Dispatch processes one raw message. A nil response means the message was
// a notification and nothing must be written back. Malformed input always
// yields an error response, never an error return.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte, sessionID string) *protocol.Response {
	var req protocol.Request
	if err := json.Unmarshal(body, &req); err != nil {
		// -32700 is reserved for bodies that are not JSON at all. Valid
		// JSON that fails the typed decode (method not a string, id of an
		// unusable type, a non-object body) is an invalid request, and the
		// id must still be echoed when one was recoverable.
		if !json.Valid(body) {
			d.logger.Warn("unparseable message", logging.ErrorField(err))
			return protocol.NewErrorResponse(nil, int(protocol.ParseError), "parse error", nil)
		}
		var loose struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(body, &loose) != nil {
			return protocol.NewErrorResponse(nil, int(protocol.InvalidRequest), "invalid request", nil)
		}
		if len(loose.ID) == 0 {
			// malformed notification, nothing to reply to
			return nil
		}
		var id interface{}
		if json.Unmarshal(loose.ID, &id) != nil {
			id = nil
		}
		return protocol.NewErrorResponse(id, int(protocol.InvalidRequest), "invalid request", nil)
	}

	if req.JSONRPC != protocol.JSONRPCVersion || req.Method == "" {
		if req.IsNotification() {
			// A malformed notification still gets no reply.
			return nil
		}
		return protocol.NewErrorResponse(req.ID, int(protocol.InvalidRequest), "invalid request", nil)
	}

	handler, ok := d.handlers[req.Method]
	if !ok {
		if req.IsNotification() {
			d.logger.Debug("ignoring unknown notification", logging.String("method", req.Method))
			return nil
		}
		err := mcperrors.NewMethodNotFound(req.Method)
		return protocol.NewErrorResponse(req.ID, err.Code(), err.Message(), err.Data())
	}

	// A presented session id must name a live session. Initialize is
	// exempt: it is the call that mints ids in the first place.
	if sessionID != "" && req.Method != protocol.MethodInitialize && d.sessions != nil {
		if !d.sessions.Touch(sessionID) {
			if req.IsNotification() {
				return nil
			}
			err := mcperrors.NewSessionNotFound(sessionID)
			return protocol.NewErrorResponse(req.ID, err.Code(), err.Message(), err.Data())
		}
	}

	ctx, span := d.tracer.StartMethodSpan(ctx, req.Method)
	defer span.End()

	start := time.Now()
	result, err := d.invoke(ctx, handler, req.Params, sessionID)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		d.tracer.RecordError(ctx, err)
	}
	d.metrics.RecordRequest(req.Method, status, elapsed)

	if req.IsNotification() {
		if err != nil {
			d.logger.Warn("notification handler failed",
				logging.String("method", req.Method),
				logging.ErrorField(err))
		}
		return nil
	}

	if err != nil {
		code, message, data := mcperrors.ToEnvelope(err)
		d.logger.Warn("request failed",
			logging.String("method", req.Method),
			logging.Int("code", code),
			logging.ErrorField(err))
		return protocol.NewErrorResponse(req.ID, code, message, data)
	}

	resp, err := protocol.NewResponse(req.ID, result)
	if err != nil {
		d.logger.Error("unmarshalable handler result",
			logging.String("method", req.Method),
			logging.ErrorField(err))
		return protocol.NewErrorResponse(req.ID, mcperrors.CodeInternal, "internal error", nil)
	}
	return resp
}

// invoke runs a handler with panic containment. A panicking handler must
// take down its own request only, never the process.
func (d *Dispatcher) invoke(ctx context.Context, handler HandlerFunc, params json.RawMessage, sessionID string) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic", logging.Any("panic", r))
			result = nil
			err = mcperrors.Newf(mcperrors.CodeInternal, mcperrors.CategoryInternal, "internal error")
		}
	}()
	return handler(ctx, params, sessionID)
}
