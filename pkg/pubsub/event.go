package pubsub

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types delivered on a user's events stream.
const (
	EventNotificationCreated = "notification.created"
	EventMessageCreated      = "message.created"
	EventMessagesRead        = "messages.read"
)

// Event is what subscribers receive and what the hub forwards to websockets
// unchanged. UserID is the recipient.
type Event struct {
	Type      string          `json:"type"`
	UserID    int64           `json:"user_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent stamps payload, encoded as JSON, for delivery to userID.
func NewEvent(eventType string, userID int64, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{Type: eventType, UserID: userID, Payload: raw, Timestamp: time.Now().UTC()}, nil
}

func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// encodeEvent and decodeEvent are the wire format shared by the broker
// drivers.
func encodeEvent(e *Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (*Event, error) {
	e := new(Event)
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}

// MessagesReadPayload tells a sender that the receiver read their messages.
type MessagesReadPayload struct {
	ReaderID int64 `json:"reader_id"`
	Count    int64 `json:"count"`
}
