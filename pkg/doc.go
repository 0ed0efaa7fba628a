// Package pkg groups the building blocks of the rustymail MCP server.
//
// The server exposes the mail engine's tool surface over the Model Context
// Protocol's Streamable HTTP transport: JSON-RPC 2.0 requests arrive via
// POST, responses come back as plain JSON or SSE-framed events depending on
// the client's Accept header, and a GET with Accept: text/event-stream
// opens a long-lived event channel.
//
// # Sub-packages
//
//   - protocol: JSON-RPC envelope and MCP message types
//   - server: origin guard, transport negotiation, sessions, dispatcher, SSE
//   - tools: tool registry and the mailbox-backed default catalog
//   - mcperrors: structured errors with JSON-RPC code mapping
//   - config: YAML configuration with env expansion
//   - logging: structured leveled logging
//   - observability: Prometheus metrics and OpenTelemetry tracing
package pkg
