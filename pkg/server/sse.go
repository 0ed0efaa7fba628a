package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/observability"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
)

// Event is one server-sent event. An empty Name produces a bare data event.
type Event struct {
	Name string
	Data interface{}
}

// channel is one live SSE connection. Events are funneled through a
// buffered queue so exactly one goroutine writes to the ResponseWriter.
type channel struct {
	id        string
	sessionID string
	queue     chan Event
}

// SSEHub tracks open SSE channels and fans events out to them.
type SSEHub struct {
	mu       sync.RWMutex
	channels map[string]*channel

	heartbeat   time.Duration
	eventBuffer int
	logger      logging.Logger
	metrics     *observability.Metrics
}

// NewSSEHub creates a hub. heartbeat is the interval between keep-alive
// events on every channel.
func NewSSEHub(heartbeat time.Duration, eventBuffer int, logger logging.Logger, metrics *observability.Metrics) *SSEHub {
	if logger == nil {
		logger = logging.Nop()
	}
	if eventBuffer <= 0 {
		eventBuffer = 100
	}
	return &SSEHub{
		channels:    make(map[string]*channel),
		heartbeat:   heartbeat,
		eventBuffer: eventBuffer,
		logger:      logger,
		metrics:     metrics,
	}
}

// Len returns the number of open channels.
func (h *SSEHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// Publish queues an event to every channel bound to the given session.
// Channels with a full queue drop the event rather than block the caller.
func (h *SSEHub) Publish(sessionID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.channels {
		if ch.sessionID != sessionID {
			continue
		}
		select {
		case ch.queue <- event:
		default:
			h.logger.Warn("dropping event for slow channel",
				logging.String("connection_id", ch.id))
		}
	}
}

// Broadcast queues an event to every open channel.
func (h *SSEHub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.channels {
		select {
		case ch.queue <- event:
		default:
			h.logger.Warn("dropping event for slow channel",
				logging.String("connection_id", ch.id))
		}
	}
}

// Serve runs one SSE channel on the given response writer until the client
// disconnects or ctx is canceled. It writes the stream headers, announces
// the connection with a connected event, then alternates between queued
// events and heartbeats.
func (h *SSEHub) Serve(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support streaming")
	}

	ch := &channel{
		id:        uuid.NewString(),
		sessionID: sessionID,
		queue:     make(chan Event, h.eventBuffer),
	}

	h.mu.Lock()
	h.channels[ch.id] = ch
	h.mu.Unlock()
	h.metrics.ChannelOpened()

	defer func() {
		h.mu.Lock()
		delete(h.channels, ch.id)
		h.mu.Unlock()
		h.metrics.ChannelClosed()
		h.logger.Debug("sse channel closed", logging.String("connection_id", ch.id))
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if sessionID != "" {
		w.Header().Set(protocol.HeaderSessionID, sessionID)
	}
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, Event{Name: "connected", Data: map[string]string{"connectionId": ch.id}}); err != nil {
		return err
	}
	flusher.Flush()

	h.logger.Debug("sse channel opened",
		logging.String("connection_id", ch.id),
		logging.String("session_id", sessionID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-ch.queue:
			if err := writeEvent(w, event); err != nil {
				return err
			}
			flusher.Flush()
		case <-ticker.C:
			hb := Event{Name: "heartbeat", Data: map[string]int64{"timestamp": time.Now().Unix()}}
			if err := writeEvent(w, hb); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

// writeEvent serializes one event in SSE wire format.
func writeEvent(w http.ResponseWriter, event Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshaling sse event: %w", err)
	}
	if event.Name != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event.Name); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
