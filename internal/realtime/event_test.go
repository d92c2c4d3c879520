package realtime

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewPresenceEvent(t *testing.T) {
	at := time.Now()
	ev := NewPresenceEvent("u1", true, at)

	if ev.Name != EventPresenceChanged {
		t.Errorf("expected %s, got %s", EventPresenceChanged, ev.Name)
	}

	var payload PresencePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.UserID != "u1" || !payload.Online {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestNewTypingEvent(t *testing.T) {
	t.Run("typing start", func(t *testing.T) {
		ev := NewTypingEvent("conv:7", "u1", true)
		if ev.Name != EventUserTyping {
			t.Errorf("expected %s, got %s", EventUserTyping, ev.Name)
		}
	})

	t.Run("typing stop", func(t *testing.T) {
		ev := NewTypingEvent("conv:7", "u1", false)
		if ev.Name != EventUserStopTyping {
			t.Errorf("expected %s, got %s", EventUserStopTyping, ev.Name)
		}

		var payload TypingPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.RoomID != "conv:7" || payload.UserID != "u1" {
			t.Errorf("unexpected payload: %+v", payload)
		}
	})
}

func TestEventEncode(t *testing.T) {
	ev := NewRawEvent(EventMessageNew, json.RawMessage(`{"id":"m1","text":"hi"}`))

	data, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode wire form: %v", err)
	}
	if decoded.Name != EventMessageNew {
		t.Errorf("expected %s, got %s", EventMessageNew, decoded.Name)
	}
	if string(decoded.Payload) != `{"id":"m1","text":"hi"}` {
		t.Errorf("payload not passed through opaquely: %s", decoded.Payload)
	}
}

func TestEventValidate(t *testing.T) {
	if err := (&Event{}).Validate(); err == nil {
		t.Error("expected error for empty event")
	}
	if err := (&Event{Name: EventNotification}).Validate(); err == nil {
		t.Error("expected error for event without payload")
	}
	ev := NewRawEvent(EventNotification, json.RawMessage(`{}`))
	if err := ev.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
