package server

import (
	"fmt"
	"net/http"
	"strings"
)

// TransportMode is the response framing selected for one request.
type TransportMode int

const (
	// ModeJSON answers a POST with a plain JSON body.
	ModeJSON TransportMode = iota
	// ModeSSEResponse answers a POST with a single SSE-framed data event.
	ModeSSEResponse
	// ModeSSEChannel upgrades a GET into a long-lived SSE event stream.
	ModeSSEChannel
)

func (m TransportMode) String() string {
	switch m {
	case ModeJSON:
		return "json"
	case ModeSSEResponse:
		return "sse-response"
	case ModeSSEChannel:
		return "sse-channel"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// TransportError rejects a request during negotiation with a specific HTTP
// status.
type TransportError struct {
	Status int
	Reason string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Reason)
}

// Negotiate selects the response framing from the request method and Accept
// header. It inspects nothing else, so the decision is independent of the
// request body and session state.
//
//	POST accepting JSON (or anything, or nothing)  -> ModeJSON
//	POST accepting text/event-stream               -> ModeSSEResponse
//	GET  accepting text/event-stream               -> ModeSSEChannel
//	GET  otherwise                                 -> 405
//	any other method                               -> 400
func Negotiate(method, accept string) (TransportMode, error) {
	wantsSSE := acceptsEventStream(accept)
	switch method {
	case http.MethodPost:
		if wantsSSE {
			return ModeSSEResponse, nil
		}
		return ModeJSON, nil
	case http.MethodGet:
		if wantsSSE {
			return ModeSSEChannel, nil
		}
		return 0, &TransportError{
			Status: http.StatusMethodNotAllowed,
			Reason: "GET requires Accept: text/event-stream",
		}
	default:
		return 0, &TransportError{
			Status: http.StatusBadRequest,
			Reason: fmt.Sprintf("unsupported method %s", method),
		}
	}
}

// acceptsEventStream reports whether the Accept header names
// text/event-stream in any of its comma-separated entries. Quality
// parameters are ignored.
func acceptsEventStream(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		media := strings.TrimSpace(part)
		if idx := strings.Index(media, ";"); idx >= 0 {
			media = strings.TrimSpace(media[:idx])
		}
		if strings.EqualFold(media, "text/event-stream") {
			return true
		}
	}
	return false
}
