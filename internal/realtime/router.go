package realtime

import (
	"context"
	"sync/atomic"

	"pixelgram-realtime/pkg/log"
)

// Target identifies the recipients of a delivery: either all connections of
// one user, or all connections subscribed to one room.
type Target struct {
	room bool
	id   string
}

// UserTarget targets every live connection of a user.
func UserTarget(userID string) Target {
	return Target{id: userID}
}

// RoomTarget targets every connection subscribed to a room.
func RoomTarget(roomID string) Target {
	return Target{room: true, id: roomID}
}

// IsRoom reports whether the target is a room.
func (t Target) IsRoom() bool { return t.room }

// ID returns the user or room id.
func (t Target) ID() string { return t.id }

// Router resolves a target to live connections and pushes an event to each.
// Pushes are best effort: a failed push to one connection never affects the
// others and is never surfaced to the caller. Delivering to a target with
// zero live connections is a silent no-op.
type Router struct {
	registry *Registry
	rooms    *Rooms
	logger   log.Logger

	eventsRouted atomic.Int64
	framesSent   atomic.Int64
	framesFailed atomic.Int64
}

// NewRouter creates a Router over the given registry and room tracker.
func NewRouter(registry *Registry, rooms *Rooms, logger log.Logger) *Router {
	return &Router{
		registry: registry,
		rooms:    rooms,
		logger:   logger,
	}
}

// Deliver pushes an event to every live connection resolved from the target.
func (rt *Router) Deliver(target Target, ev *Event) {
	if target.room {
		rt.DeliverToRoom(target.id, ev)
		return
	}
	rt.DeliverToUser(target.id, ev)
}

// DeliverToUser pushes an event to every live connection of a user.
func (rt *Router) DeliverToUser(userID string, ev *Event) {
	rt.push(rt.registry.UserPushers(userID), ev)
}

// DeliverToRoom pushes an event to every connection subscribed to a room.
// Members are resolved to pushers through the registry; a member evicted
// between resolution and push is simply skipped.
func (rt *Router) DeliverToRoom(roomID string, ev *Event) {
	rt.push(rt.registry.Pushers(rt.rooms.Members(roomID)), ev)
}

// Broadcast pushes an event to every live connection.
func (rt *Router) Broadcast(ev *Event) {
	rt.push(rt.registry.AllPushers(), ev)
}

func (rt *Router) push(pushers []Pusher, ev *Event) {
	rt.eventsRouted.Add(1)
	if len(pushers) == 0 {
		return
	}

	data, err := ev.Encode()
	if err != nil {
		rt.logger.Errorf(context.Background(), "failed to encode %s event: %v", ev.Name, err)
		rt.framesFailed.Add(int64(len(pushers)))
		return
	}

	for _, p := range pushers {
		if p.Push(data) {
			rt.framesSent.Add(1)
		} else {
			// Send buffer full or connection closing. The durable record,
			// if any, lives in the API layer's store; drop and count.
			rt.logger.Warnf(context.Background(), "dropped %s event: connection not accepting writes", ev.Name)
			rt.framesFailed.Add(1)
		}
	}
}

// Stats returns the router's delivery counters.
func (rt *Router) Stats() (routed, sent, failed int64) {
	return rt.eventsRouted.Load(), rt.framesSent.Load(), rt.framesFailed.Load()
}
