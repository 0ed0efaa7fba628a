package protocol

const (
	// ProtocolRevision is the protocol revision this server negotiates.
	ProtocolRevision = "2025-03-26"

	// ServerName identifies this server in initialize responses.
	ServerName = "rustymail-mcp"

	// ServerVersion is reported alongside ServerName.
	ServerVersion = "1.0.0"

	// HeaderSessionID carries the session id on requests and responses.
	HeaderSessionID = "Mcp-Session-Id"
)

// Method names handled by the server.
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
	MethodPing       = "ping"

	// NotificationInitialized is sent by clients after initialize completes.
	// Notifications never receive a response.
	NotificationInitialized = "notifications/initialized"
)

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion,omitempty"`
	Capabilities    map[string]bool `json:"capabilities,omitempty"`
	ClientInfo      *ClientInfo     `json:"clientInfo,omitempty"`
}

// ClientInfo provides additional information about the client
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
	Meta            *ResultMeta            `json:"_meta,omitempty"`
}

// ServerInfo provides additional information about the server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ResultMeta carries transport metadata inside a result. The session id is
// duplicated here and in the Mcp-Session-Id response header for clients that
// cannot read headers.
type ResultMeta struct {
	SessionID string `json:"sessionId"`
}

// PingParams defines parameters for the ping request
type PingParams struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

// PingResult is the response for ping
type PingResult struct {
	Timestamp int64 `json:"timestamp"`
}
