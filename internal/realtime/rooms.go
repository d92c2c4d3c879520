package realtime

import (
	"context"
	"sync"

	"pixelgram-realtime/pkg/log"
)

// Rooms tracks ad-hoc broadcast groups keyed by room id, independent of user
// identity: two tabs of the same user may both join a room, and a room may
// hold connections of many users (everyone viewing a post, a conversation).
//
// Two mirrored maps are kept so that LeaveAll is proportional to the number
// of rooms the connection joined, not the number of rooms that exist. A room
// with no members does not exist: the entry is deleted on last leave.
type Rooms struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]struct{}
	byConn map[string]map[string]struct{}

	logger log.Logger
}

// NewRooms creates an empty Rooms tracker.
func NewRooms(logger log.Logger) *Rooms {
	return &Rooms{
		byRoom: make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Join adds a connection to a room. Joining an already-joined room is a
// no-op.
func (r *Rooms) Join(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, exists := r.byRoom[roomID]
	if !exists {
		members = make(map[string]struct{})
		r.byRoom[roomID] = members
	}
	members[connID] = struct{}{}

	rooms, exists := r.byConn[connID]
	if !exists {
		rooms = make(map[string]struct{})
		r.byConn[connID] = rooms
	}
	rooms[roomID] = struct{}{}
}

// Leave removes a connection from a room. Leaving a room never joined is a
// no-op.
func (r *Rooms) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, roomID)
}

// LeaveAll removes a connection from every room it joined. Called on every
// eviction so no room keeps a reference to a dead connection.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, exists := r.byConn[connID]
	if !exists {
		return
	}
	for roomID := range rooms {
		r.leaveLocked(connID, roomID)
	}
	r.logger.Debugf(context.Background(), "connection %s left all rooms", connID)
}

func (r *Rooms) leaveLocked(connID, roomID string) {
	if members, exists := r.byRoom[roomID]; exists {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.byRoom, roomID)
		}
	}
	if rooms, exists := r.byConn[connID]; exists {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// Members returns a snapshot of the connection ids in a room.
func (r *Rooms) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.byRoom[roomID]
	if !exists {
		return nil
	}
	ids := make([]string, 0, len(members))
	for connID := range members {
		ids = append(ids, connID)
	}
	return ids
}

// JoinedRooms returns a snapshot of the rooms a connection is in.
func (r *Rooms) JoinedRooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms, exists := r.byConn[connID]
	if !exists {
		return nil
	}
	ids := make([]string, 0, len(rooms))
	for roomID := range rooms {
		ids = append(ids, roomID)
	}
	return ids
}

// RoomCount returns the number of rooms with at least one member.
func (r *Rooms) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom)
}
