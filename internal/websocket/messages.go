package websocket

import (
	"encoding/json"
	"time"

	"github.com/satriahrh/swara/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypePipelineEvent MessageType = "pipeline_event"
	MessageTypeError         MessageType = "error"
)

// EventMessage wraps one pipeline event for delivery to a client.
type EventMessage struct {
	Type      MessageType    `json:"type"`
	SessionID string         `json:"session_id"`
	Timestamp string         `json:"timestamp"`
	Event     entities.Event `json:"event"`
}

// NewEventMessage builds an EventMessage for a session event.
func NewEventMessage(sessionID string, event entities.Event) EventMessage {
	return EventMessage{
		Type:      MessageTypePipelineEvent,
		SessionID: sessionID,
		Timestamp: time.Now().Format(time.RFC3339),
		Event:     event,
	}
}

// Encode marshals the message for the wire.
func (m EventMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
