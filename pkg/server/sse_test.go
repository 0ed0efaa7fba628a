package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
)

// openChannel starts one SSE channel against a hub and returns a scanner
// over the stream plus a cancel func that closes it.
func openChannel(t *testing.T, hub *SSEHub, sessionID string) (*bufio.Scanner, context.CancelFunc) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(r.Context(), w, sessionID)
	}))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return bufio.NewScanner(resp.Body), cancel
}

// readEvent scans until one full SSE event is consumed, returning its name
// and data line.
func readEvent(t *testing.T, scanner *bufio.Scanner) (name, data string) {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			return name, data
		}
	}
	t.Fatal("stream ended before a full event arrived")
	return "", ""
}

func TestHubAnnouncesConnection(t *testing.T) {
	hub := NewSSEHub(time.Hour, 10, logging.Nop(), nil)

	scanner, cancel := openChannel(t, hub, "")
	defer cancel()

	name, data := readEvent(t, scanner)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, "connectionId")
}

func TestHubPublishTargetsSession(t *testing.T) {
	hub := NewSSEHub(time.Hour, 10, logging.Nop(), nil)

	scanner, cancel := openChannel(t, hub, "session-a")
	defer cancel()
	readEvent(t, scanner) // connected

	// channels register asynchronously with respect to the client seeing
	// the connected event, so wait for the hub to know about it
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish("session-b", Event{Name: "mail", Data: map[string]string{"folder": "INBOX"}})
	hub.Publish("session-a", Event{Name: "mail", Data: map[string]string{"folder": "INBOX.Sent"}})

	name, data := readEvent(t, scanner)
	assert.Equal(t, "mail", name)
	// the session-b event never reached this channel
	assert.Contains(t, data, "INBOX.Sent")
}

func TestHubBroadcastReachesAllChannels(t *testing.T) {
	hub := NewSSEHub(time.Hour, 10, logging.Nop(), nil)

	first, cancelFirst := openChannel(t, hub, "one")
	defer cancelFirst()
	second, cancelSecond := openChannel(t, hub, "two")
	defer cancelSecond()
	readEvent(t, first)
	readEvent(t, second)

	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(Event{Name: "announce", Data: map[string]string{"msg": "maintenance"}})

	for _, scanner := range []*bufio.Scanner{first, second} {
		name, data := readEvent(t, scanner)
		assert.Equal(t, "announce", name)
		assert.Contains(t, data, "maintenance")
	}
}

func TestHubRemovesClosedChannels(t *testing.T) {
	hub := NewSSEHub(time.Hour, 10, logging.Nop(), nil)

	scanner, cancel := openChannel(t, hub, "")
	readEvent(t, scanner)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}
