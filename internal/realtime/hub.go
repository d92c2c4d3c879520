package realtime

import (
	"context"

	"pixelgram-realtime/pkg/log"
)

// Hub is the composition root of the realtime core. It owns the registry,
// room tracker, router, and presence tracker, and is the only type the
// transport and ingest layers talk to.
//
// Ordering invariants it enforces:
//   - admit registers the connection before the presence online edge is
//     broadcast, so the new connection receives its own user's event;
//   - evict removes the connection from the registry, then from every room,
//     then broadcasts the offline edge.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	router   *Router
	presence *PresenceTracker

	maxConnections int
	logger         log.Logger
}

// NewHub creates a Hub with an empty registry. maxConnections <= 0 disables
// the cap.
func NewHub(logger log.Logger, maxConnections int) *Hub {
	registry := NewRegistry(logger)
	rooms := NewRooms(logger)
	router := NewRouter(registry, rooms, logger)

	return &Hub{
		registry:       registry,
		rooms:          rooms,
		router:         router,
		presence:       NewPresenceTracker(router, logger),
		maxConnections: maxConnections,
		logger:         logger,
	}
}

// Admit registers an authenticated connection. It returns ErrConnectionLimit
// if the connection cap is reached; the caller owns closing the transport in
// that case.
func (h *Hub) Admit(userID, connID string, p Pusher) error {
	if h.maxConnections > 0 && h.registry.ConnectionCount() >= h.maxConnections {
		h.logger.Warnf(context.Background(), "connection cap %d reached, rejecting user %s", h.maxConnections, userID)
		return ErrConnectionLimit
	}

	first := h.registry.Admit(userID, connID, p)
	h.logger.Infof(context.Background(),
		"user %s connected (conn %s, total connections: %d)",
		userID, connID, h.registry.ConnectionCount(),
	)
	h.presence.ConnectionAdmitted(userID, first)
	return nil
}

// Evict removes a connection by id. Unknown ids are logged no-ops because
// disconnect signals can fire more than once per physical drop.
func (h *Hub) Evict(connID string) {
	userID, last, ok := h.registry.Evict(connID)
	if !ok {
		h.logger.Debugf(context.Background(), "evict of unknown connection %s ignored", connID)
		return
	}

	h.rooms.LeaveAll(connID)

	h.logger.Infof(context.Background(),
		"user %s disconnected (conn %s, remaining connections: %d)",
		userID, connID, h.registry.ConnectionCount(),
	)
	h.presence.ConnectionEvicted(userID, last)
}

// JoinRoom subscribes a connection to a room. Idempotent.
func (h *Hub) JoinRoom(connID, roomID string) {
	h.rooms.Join(connID, roomID)
}

// LeaveRoom unsubscribes a connection from a room. Idempotent.
func (h *Hub) LeaveRoom(connID, roomID string) {
	h.rooms.Leave(connID, roomID)
}

// RoomMembers returns the connection ids subscribed to a room.
func (h *Hub) RoomMembers(roomID string) []string {
	return h.rooms.Members(roomID)
}

// Deliver pushes an event to a user or room target, best effort.
func (h *Hub) Deliver(target Target, ev *Event) {
	h.router.Deliver(target, ev)
}

// DeliverToUser pushes an event to every live connection of a user.
func (h *Hub) DeliverToUser(userID string, ev *Event) {
	h.router.DeliverToUser(userID, ev)
}

// DeliverToRoom pushes an event to every member connection of a room.
func (h *Hub) DeliverToRoom(roomID string, ev *Event) {
	h.router.DeliverToRoom(roomID, ev)
}

// Broadcast pushes an event to every live connection.
func (h *Hub) Broadcast(ev *Event) {
	h.router.Broadcast(ev)
}

// IsOnline reports whether a user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

// OnlineUserIDs returns a snapshot of all online users.
func (h *Hub) OnlineUserIDs() []string {
	return h.registry.OnlineUserIDs()
}

// Stats returns a snapshot of hub counters.
func (h *Hub) Stats() Stats {
	routed, sent, failed := h.router.Stats()
	online, offline := h.presence.Stats()

	return Stats{
		ActiveConnections: h.registry.ConnectionCount(),
		OnlineUsers:       h.registry.UserCount(),
		ActiveRooms:       h.rooms.RoomCount(),
		EventsRouted:      routed,
		FramesSent:        sent,
		FramesFailed:      failed,
		OnlineEvents:      online,
		OfflineEvents:     offline,
	}
}

// Shutdown closes every live connection and drains the registry. Evictions
// run through the normal path so room membership is cleaned up.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info(ctx, "hub shutting down, closing all connections")

	for _, p := range h.registry.AllPushers() {
		p.Close()
	}
	for _, connID := range h.registry.ConnectionIDs() {
		h.Evict(connID)
	}
	return nil
}

// Stats is a snapshot of hub counters.
type Stats struct {
	ActiveConnections int   `json:"active_connections"`
	OnlineUsers       int   `json:"online_users"`
	ActiveRooms       int   `json:"active_rooms"`
	EventsRouted      int64 `json:"events_routed"`
	FramesSent        int64 `json:"frames_sent"`
	FramesFailed      int64 `json:"frames_failed"`
	OnlineEvents      int64 `json:"online_events"`
	OfflineEvents     int64 `json:"offline_events"`
}
