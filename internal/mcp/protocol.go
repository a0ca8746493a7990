package mcp

// JSONRPCVersion is the only protocol version spoken
const JSONRPCVersion = "2.0"

// JSON-RPC error codes returned by the server
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// ResourceNotFound is the MCP code for an unknown resource URI
	ResourceNotFound = -32002
)

// Message is one line of the stdio stream. Requests, notifications and
// responses share the shape and are told apart by kind.
type Message struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method,omitempty"`
	Params  interface{} `json:"params,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError is the error member of a response.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type messageKind int

const (
	kindInvalid messageKind = iota
	kindRequest
	kindNotification
	kindResponse
)

// kind classifies m. A message carrying a method is a call; without an id it
// is a notification. A message with an id and a result or error is a reply
// to a call the server never made.
func (m *Message) kind() messageKind {
	switch {
	case m.Method != "" && m.ID != nil:
		return kindRequest
	case m.Method != "":
		return kindNotification
	case m.ID != nil && (m.Result != nil || m.Error != nil):
		return kindResponse
	default:
		return kindInvalid
	}
}

func resultResponse(id, result interface{}) *Message {
	return &Message{Jsonrpc: JSONRPCVersion, ID: id, Result: result}
}

func errorResponse(id interface{}, code int, message string) *Message {
	return &Message{Jsonrpc: JSONRPCVersion, ID: id, Error: &RPCError{Code: code, Message: message}}
}
