package ws

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// Feeds is implemented by the websocket handler; it keeps one bus
// subscription alive per watched lecture or open thread.
type Feeds interface {
	EnsureLectureFeed(lectureID uint)
	ReleaseLectureFeed(lectureID uint)
	EnsureThreadFeed(threadID uint)
	ReleaseThreadFeed(threadID uint)
}

// MessageContext provides all dependencies needed for message processing
type MessageContext struct {
	UserID   uint
	IsMentor bool
	Conn     *websocket.Conn
	Hub      *Hub
	Feeds    Feeds
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// Envelope is the wire wrapper every client frame travels in: a type
// tag naming the watch or keepalive message, and its payload untouched
// until the concrete type is known.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEnvelope wraps a message for the wire.
func EncodeEnvelope(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msg.GetType(), Payload: payload})
}

// DecodeEnvelope unwraps a client frame into its concrete message type.
func DecodeEnvelope(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, err
	}
	msg, err := newMessage(env.Type)
	if err != nil {
		return nil, err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// ErrorResponse is sent when message processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// SendError sends an error response to the client
func SendError(conn *websocket.Conn, code, message, details string) error {
	errResp := ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	}
	return conn.WriteJSON(errResp)
}
