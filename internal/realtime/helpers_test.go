package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// mockLogger implements log.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, arg ...any)                   {}
func (m *mockLogger) Debugf(ctx context.Context, template string, arg ...any) {}
func (m *mockLogger) Info(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Infof(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, arg ...any)                    {}
func (m *mockLogger) Warnf(ctx context.Context, template string, arg ...any)  {}
func (m *mockLogger) Error(ctx context.Context, arg ...any)                   {}
func (m *mockLogger) Errorf(ctx context.Context, template string, arg ...any) {}
func (m *mockLogger) Fatal(ctx context.Context, arg ...any)                   {}
func (m *mockLogger) Fatalf(ctx context.Context, template string, arg ...any) {}

// fakePusher is an in-memory Pusher recording every frame it accepts.
type fakePusher struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	reject bool
}

func (f *fakePusher) Push(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject || f.closed {
		return false
	}
	f.frames = append(f.frames, data)
	return true
}

func (f *fakePusher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakePusher) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// events decodes every recorded frame into an Event.
func (f *fakePusher) events(t *testing.T) []Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	events := make([]Event, 0, len(f.frames))
	for _, frame := range f.frames {
		var ev Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("failed to decode pushed frame: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

// eventsNamed counts recorded events with the given name.
func (f *fakePusher) eventsNamed(t *testing.T, name EventName) int {
	t.Helper()
	count := 0
	for _, ev := range f.events(t) {
		if ev.Name == name {
			count++
		}
	}
	return count
}
