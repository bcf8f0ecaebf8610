package jsonrpc

import "encoding/json"

// Version is the JSON-RPC version
const Version = "2.0"

// MethodLoadNodes loads a set of nodes, falling back to the given defaults
const MethodLoadNodes = "nodes.load"

// Standard JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error represents a JSON-RPC error
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new JSON-RPC error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// LoadParams are the params of a nodes.load request.
// Nodes maps compact identifiers to their defaults; a null default means
// the caller has none.
type LoadParams struct {
	Target string          `json:"target"`
	Nodes  json.RawMessage `json:"nodes"`
}
