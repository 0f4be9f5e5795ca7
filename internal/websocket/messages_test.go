package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/satriahrh/swara/domain/entities"
)

func TestNewEventMessage(t *testing.T) {
	event := entities.Event{
		Type: entities.EventTranscriptAppended,
		Segments: []entities.Segment{
			{Start: 1.5, End: 3.0, Speaker: "Speaker 1", Text: "hello"},
		},
	}
	msg := NewEventMessage("session-1", event)

	if msg.Type != MessageTypePipelineEvent {
		t.Errorf("Type = %s, want %s", msg.Type, MessageTypePipelineEvent)
	}
	if msg.SessionID != "session-1" {
		t.Errorf("SessionID = %s, want session-1", msg.SessionID)
	}
	if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339: %v", msg.Timestamp, err)
	}
}

func TestEventMessageEncode(t *testing.T) {
	event := entities.Event{
		Type:  entities.EventStatusChanged,
		State: entities.PipelineRunning,
	}
	payload, err := NewEventMessage("session-2", event).Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Encoded message is not valid JSON: %v", err)
	}
	if decoded["type"] != string(MessageTypePipelineEvent) {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["session_id"] != "session-2" {
		t.Errorf("session_id = %v", decoded["session_id"])
	}
	inner, ok := decoded["event"].(map[string]interface{})
	if !ok {
		t.Fatalf("event field missing: %v", decoded)
	}
	if inner["state"] != string(entities.PipelineRunning) {
		t.Errorf("event state = %v", inner["state"])
	}
}

func TestEventMessageOmitsEmptyFields(t *testing.T) {
	payload, err := NewEventMessage("s", entities.Event{Type: entities.EventCompleted}).Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Encoded message is not valid JSON: %v", err)
	}
	inner := decoded["event"].(map[string]interface{})
	for _, field := range []string{"segments", "failure", "error", "state"} {
		if _, present := inner[field]; present {
			t.Errorf("Empty field %q should be omitted", field)
		}
	}
}
