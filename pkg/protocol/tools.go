package protocol

import (
	"encoding/json"
)

// Tool describes a named capability exposed through tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ListToolsResult defines the response for listing tools
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams defines parameters for calling a tool
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Content is a single item of tool output.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult defines the response for tool calls. Tool output is framed
// as MCP content items; IsError marks results that represent a tool-level
// failure delivered inside a success envelope.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResult frames raw JSON output as a single text content item.
func TextResult(data json.RawMessage) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: "text", Text: string(data)}},
	}
}
