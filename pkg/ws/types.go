// Package ws holds the frames exchanged over the chat WebSocket
package ws

import "encoding/json"

// Frame types sent by clients
const (
	TypeChat = "chat"
	TypePing = "ping"
)

// Frame types sent by the server
const (
	TypeSession = "session"
	TypeMessage = "message"
	TypeError   = "error"
	TypePong    = "pong"
)

// Inbound is a frame received from a client
type Inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatPayload is the payload of a "chat" frame
type ChatPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Outbound is a frame sent to a client
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload mirrors the error body of the HTTP API
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
