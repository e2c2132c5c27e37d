package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is anything published on the event buses.
type Event interface {
	// EventType returns the event code, e.g. "RESEARCH_APPROVAL_REQUESTED"
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// envelope is the wire form shared by the in-process bus and NATS.
type envelope struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// Encode serializes an event with its type and timestamp.
func Encode(e Event) ([]byte, error) {
	data, err := json.Marshal(envelope{Type: e.EventType(), OccurredAt: e.Timestamp(), Data: e.Payload()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.EventType(), err)
	}
	return data, nil
}

// Decode is the inverse of Encode. Numbers in the payload come back as float64.
func Decode(data []byte) (BaseEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BaseEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if env.Type == "" {
		return BaseEvent{}, fmt.Errorf("failed to decode event: missing type")
	}
	return BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}, nil
}

// SessionID returns the session an event belongs to, if any.
func SessionID(e Event) string {
	id, _ := e.Payload()["session_id"].(string)
	return id
}
