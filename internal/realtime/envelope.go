package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/DonShan/GeoTask/pkg/codec"
)

// MessageType discriminates realtime envelopes.
type MessageType string

const (
	TypeConnect    MessageType = "connect"
	TypeDisconnect MessageType = "disconnect"
	TypeMessage    MessageType = "message"
	TypeTyping     MessageType = "typing"
	TypeRead       MessageType = "read"
	TypeJoin       MessageType = "join"
	TypeLeave      MessageType = "leave"
	TypeHeartbeat  MessageType = "heartbeat"
	TypeError      MessageType = "error"
	TypeAck        MessageType = "ack"
)

// Envelope is the typed wrapper around every realtime message: routing
// metadata plus an opaque payload.
type Envelope struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp codec.Timestamp `json:"timestamp"`
	Sender    string          `json:"sender,omitempty"`
	Room      string          `json:"room,omitempty"`
}

// NewEnvelope stamps a fresh envelope of the given type.
func NewEnvelope(t MessageType) Envelope {
	return Envelope{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: codec.Now(),
	}
}

// ChatPayload is the payload of a message envelope.
type ChatPayload struct {
	Text string `json:"text"`
}
