package realtime

import (
	"encoding/json"
	"time"
)

// EventName identifies the kind of event pushed to clients.
type EventName string

// Event names are a stable contract with the web client.
const (
	EventPresenceChanged EventName = "presence-changed"
	EventNotification    EventName = "notification"
	EventMessageNew      EventName = "message-new"
	EventMessageRead     EventName = "message-read"
	EventUserTyping      EventName = "user-typing"
	EventUserStopTyping  EventName = "user-stop-typing"
)

// Event is the envelope pushed to clients. The payload shape depends on the
// event name: presence and typing payloads are owned by this service, the
// rest (notifications, messages) pass through opaquely from the API layer.
type Event struct {
	Name      EventName       `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"ts"`
}

// PresencePayload is the payload of a presence-changed event.
type PresencePayload struct {
	UserID    string    `json:"user_id"`
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"ts"`
}

// TypingPayload is the payload of a user-typing / user-stop-typing event.
type TypingPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// NewEvent creates an event with a marshaled payload.
func NewEvent(name EventName, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Name:      name,
		Payload:   data,
		Timestamp: time.Now(),
	}, nil
}

// NewRawEvent creates an event whose payload is already encoded. Used for
// pass-through events published by the API layer.
func NewRawEvent(name EventName, payload json.RawMessage) *Event {
	return &Event{
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewPresenceEvent creates a presence-changed event for a user transition.
func NewPresenceEvent(userID string, online bool, at time.Time) *Event {
	payload, _ := json.Marshal(PresencePayload{
		UserID:    userID,
		Online:    online,
		Timestamp: at,
	})
	return &Event{
		Name:      EventPresenceChanged,
		Payload:   payload,
		Timestamp: at,
	}
}

// NewTypingEvent creates a user-typing or user-stop-typing event.
func NewTypingEvent(roomID, userID string, typing bool) *Event {
	name := EventUserTyping
	if !typing {
		name = EventUserStopTyping
	}
	payload, _ := json.Marshal(TypingPayload{
		RoomID: roomID,
		UserID: userID,
	})
	return &Event{
		Name:      name,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Encode converts the event to its wire representation.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Validate checks the event has a name and a payload.
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrInvalidEvent
	}
	if len(e.Payload) == 0 {
		return ErrInvalidEvent
	}
	return nil
}
