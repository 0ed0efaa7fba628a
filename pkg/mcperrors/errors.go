// Package mcperrors provides structured error handling for the MCP server.
// Errors carry the JSON-RPC error code they should surface as, so the
// dispatcher can convert any handler or registry failure into a well-formed
// error envelope without knowing where it came from.
package mcperrors

import (
	"errors"
	"fmt"

	"github.com/TexasFortress-AI/rustymail-mcp/pkg/protocol"
)

// Category classifies errors for logging and metrics.
type Category string

const (
	CategoryProtocol   Category = "protocol"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryTool       Category = "tool"
	CategoryInternal   Category = "internal"
)

// Application error codes. These live outside the JSON-RPC reserved range
// (-32768..-32000) so clients can tell a server-side application failure
// from a protocol violation.
const (
	CodeToolExecution   = 1
	CodeSessionNotFound = 2
	CodeInternal        = 3
)

// Error is an error with an attached JSON-RPC code, category, and optional
// structured data for the error envelope's data field.
type Error struct {
	code     int
	message  string
	data     interface{}
	category Category
	cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the JSON-RPC error code
func (e *Error) Code() int { return e.code }

// Message returns the human-readable error message without cause chains
func (e *Error) Message() string { return e.message }

// Data returns structured error data for the envelope, or nil
func (e *Error) Data() interface{} { return e.data }

// Category returns the error category
func (e *Error) Category() Category { return e.category }

// Unwrap returns the underlying error
func (e *Error) Unwrap() error { return e.cause }

// WithData returns a copy of the error carrying structured data.
func (e *Error) WithData(data interface{}) *Error {
	newErr := *e
	newErr.data = data
	return &newErr
}

// New creates an Error with the given code, message, and category.
func New(code int, message string, category Category) *Error {
	return &Error{code: code, message: message, category: category}
}

// Newf creates an Error with a formatted message.
func Newf(code int, category Category, format string, args ...interface{}) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...), category: category}
}

// Wrap attaches a code and category to an existing error.
func Wrap(err error, code int, message string, category Category) *Error {
	return &Error{code: code, message: message, category: category, cause: err}
}

// NewMethodNotFound builds the -32601 error for an unknown method. The
// method name rides in the data field for debuggability.
func NewMethodNotFound(method string) *Error {
	e := Newf(int(protocol.MethodNotFound), CategoryProtocol, "method not found: %s", method)
	return e.WithData(map[string]string{"method": method})
}

// NewInvalidParams builds a -32602 error.
func NewInvalidParams(detail string) *Error {
	return Newf(int(protocol.InvalidParams), CategoryValidation, "invalid params: %s", detail)
}

// NewUnknownTool builds the -32602 error for a tools/call naming a tool the
// registry does not know.
func NewUnknownTool(name string) *Error {
	e := Newf(int(protocol.InvalidParams), CategoryNotFound, "unknown tool: %s", name)
	return e.WithData(map[string]string{"tool": name})
}

// NewToolExecution wraps a tool failure as an application error.
func NewToolExecution(tool string, err error) *Error {
	return Wrap(err, CodeToolExecution, fmt.Sprintf("tool %s failed", tool), CategoryTool)
}

// NewSessionNotFound builds the application error for an unknown session id.
func NewSessionNotFound(id string) *Error {
	return Newf(CodeSessionNotFound, CategoryNotFound, "session not found: %s", id)
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ToEnvelope converts any error into the (code, message, data) triple for a
// JSON-RPC error object. Errors without an attached code become generic
// application errors so handler internals never leak to clients.
func ToEnvelope(err error) (int, string, interface{}) {
	if e, ok := As(err); ok {
		return e.Code(), e.Message(), e.Data()
	}
	return CodeInternal, "internal error", nil
}
