// Package protocol defines the JSON-RPC 2.0 envelope and the MCP message
// types exchanged over the Streamable HTTP transport.
//
// The Model Context Protocol (MCP) is a JSON-RPC based communication protocol
// that lets AI models interact with their environment through a standardized
// interface. This package contains the wire-level type definitions only; the
// server state machine lives in pkg/server and the tool implementations in
// pkg/tools.
package protocol
