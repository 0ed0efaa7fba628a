package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/logging"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/mcperrors"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
	"github.com/TexasFortress-AI/rustymail-mcp/pkg/tools"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *SessionStore) {
	t.Helper()
	sessions := NewSessionStore(10*time.Minute, time.Minute, logging.Nop())
	registry := tools.NewMailboxRegistry(tools.NewInMemoryMailbox())
	handlers := NewCoreHandlers(sessions, registry, logging.Nop(), nil)
	return NewDispatcher(handlers.Table(), sessions, logging.Nop(), nil, nil), sessions
}

func dispatch(t *testing.T, d *Dispatcher, body string) *protocol.Response {
	t.Helper()
	return d.Dispatch(context.Background(), []byte(body), "")
}

func TestDispatchParseError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{not json`)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int(protocol.ParseError), resp.Error.Code)
	assert.Nil(t, resp.ID)
}

func TestDispatchInvalidRequest(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name   string
		body   string
		wantID interface{}
	}{
		{name: "wrong version", body: `{"jsonrpc":"1.0","id":1,"method":"ping"}`, wantID: float64(1)},
		{name: "missing version", body: `{"id":1,"method":"ping"}`, wantID: float64(1)},
		{name: "missing method", body: `{"jsonrpc":"2.0","id":1}`, wantID: float64(1)},
		{name: "method is a number", body: `{"jsonrpc":"2.0","id":1,"method":1}`, wantID: float64(1)},
		{name: "method is an object", body: `{"jsonrpc":"2.0","id":"a","method":{}}`, wantID: "a"},
		{name: "body is an array", body: `[1,2,3]`, wantID: nil},
		{name: "body is a bare number", body: `5`, wantID: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, d, tt.body)
			require.NotNil(t, resp)
			require.NotNil(t, resp.Error)
			assert.Equal(t, int(protocol.InvalidRequest), resp.Error.Code)
			assert.Equal(t, tt.wantID, resp.ID)
		})
	}
}

func TestDispatchBadMethodTypeIsNotAParseError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// valid JSON with a non-string method must not be classified -32700
	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":1,"method":1}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int(protocol.InvalidRequest), resp.Error.Code)
	assert.Equal(t, float64(1), resp.ID)
}

func TestDispatchBadMethodTypeNotificationGetsNoResponse(t *testing.T) {
	d, _ := newTestDispatcher(t)

	assert.Nil(t, dispatch(t, d, `{"jsonrpc":"2.0","method":1}`))
}

func TestDispatchMethodNotFound(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":7,"method":"no/such"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int(protocol.MethodNotFound), resp.Error.Code)
	assert.Equal(t, float64(7), resp.ID)

	data, ok := resp.Error.Data.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "no/such", data["method"])
}

func TestDispatchNotificationGetsNoResponse(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "known notification", body: `{"jsonrpc":"2.0","method":"notifications/initialized"}`},
		{name: "unknown notification", body: `{"jsonrpc":"2.0","method":"notifications/whatever"}`},
		{name: "malformed notification", body: `{"jsonrpc":"1.0","method":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, dispatch(t, d, tt.body))
		})
	}
}

func TestDispatchNullIDIsNotANotification(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":null,"method":"ping"}`)
	require.NotNil(t, resp)
	assert.Nil(t, resp.ID)
	assert.Nil(t, resp.Error)
}

func TestDispatchInitializeCreatesSession(t *testing.T) {
	d, sessions := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"test","version":"0.1"}}}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, protocol.ProtocolRevision, result.ProtocolVersion)
	assert.Equal(t, protocol.ServerName, result.ServerInfo.Name)
	assert.Equal(t, protocol.ServerVersion, result.ServerInfo.Version)
	require.NotNil(t, result.Meta)
	assert.NotEmpty(t, result.Meta.SessionID)

	_, ok := sessions.Get(result.Meta.SessionID)
	assert.True(t, ok)
	assert.Equal(t, 1, sessions.Len())
}

func TestDispatchOnlyInitializeCreatesSessions(t *testing.T) {
	d, sessions := newTestDispatcher(t)

	dispatch(t, d, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	dispatch(t, d, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	assert.Equal(t, 0, sessions.Len())
}

func TestDispatchUnknownSessionID(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`), "stale-session")
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeSessionNotFound, resp.Error.Code)
	assert.Equal(t, float64(3), resp.ID)
}

func TestDispatchKnownSessionIDTouches(t *testing.T) {
	d, sessions := newTestDispatcher(t)
	sess := sessions.Create()

	resp := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":4,"method":"tools/list"}`), sess.ID)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
}

func TestDispatchToolsList(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":5,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	var result protocol.ListToolsResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.GreaterOrEqual(t, len(result.Tools), 3)

	found := false
	for _, tool := range result.Tools {
		if tool.Name == "list_folders" {
			found = true
		}
	}
	assert.True(t, found, "list_folders missing from tools/list")
}

func TestDispatchToolsCall(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"list_folders","arguments":{"account_id":"demo@example.com"}}}`)
	require.Nil(t, resp.Error)

	var result protocol.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "INBOX")
}

func TestDispatchToolsCallUnknownTool(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"not_a_tool"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, int(protocol.InvalidParams), resp.Error.Code)
}

func TestDispatchToolFailureUsesApplicationCode(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// deleting INBOX is refused by the mailbox, so the tool itself fails
	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"delete_folder","arguments":{"account_id":"demo@example.com","folder_name":"INBOX"}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeToolExecution, resp.Error.Code)
}

func TestDispatchNilHandlerResultGetsEmptyObject(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// the initialized handler returns no value; sent as a request instead
	// of a notification, the envelope must still carry a result
	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":1,"method":"notifications/initialized"}`)
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{}`, string(resp.Result))

	wire, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(wire), `"result"`)
}

func TestDispatchPing(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":"ping-1","method":"ping","params":{"timestamp":1717243200000}}`)
	require.Nil(t, resp.Error)
	assert.Equal(t, "ping-1", resp.ID)

	var result protocol.PingResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, int64(1717243200000), result.Timestamp)
}

func TestDispatchPanicContainment(t *testing.T) {
	table := map[string]HandlerFunc{
		"explode": func(ctx context.Context, params json.RawMessage, sessionID string) (interface{}, error) {
			panic("boom")
		},
	}
	d := NewDispatcher(table, nil, logging.Nop(), nil, nil)

	resp := dispatch(t, d, `{"jsonrpc":"2.0","id":10,"method":"explode"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeInternal, resp.Error.Code)
	assert.Equal(t, "internal error", resp.Error.Message)
}
