package realtime

import (
	"context"
	"sync"
	"time"

	"pixelgram-realtime/pkg/log"
)

// Pusher is the write side of one live connection. Push is best effort: it
// must not block, and a false return means the frame was dropped. Close
// tears down the underlying transport.
type Pusher interface {
	Push(data []byte) bool
	Close()
}

// registration is the registry's record of one live connection.
type registration struct {
	userID     string
	pusher     Pusher
	admittedAt time.Time
}

// Registry maps user ids to their live connections. A user id is present in
// the forward map iff it has at least one live connection; the entry is
// deleted, never left empty, because emptiness is what drives the offline
// transition.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[string]struct{}
	conns map[string]*registration

	logger log.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		users:  make(map[string]map[string]struct{}),
		conns:  make(map[string]*registration),
		logger: logger,
	}
}

// Admit registers a live connection under a user and reports whether it is
// the user's first. The first/last edges are decided under the registry lock,
// so two connections racing to be first cannot both observe first == true.
func (r *Registry) Admit(userID, connID string, p Pusher) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.conns[connID]; exists {
		// Connection ids are generated per transport link, so a duplicate
		// admit means the transport layer misbehaved. Replace the stale
		// record rather than leaking it.
		r.logger.Warnf(context.Background(), "duplicate admit for connection %s (user %s), replacing", connID, old.userID)
		r.removeLocked(connID)
	}

	set, exists := r.users[userID]
	if !exists {
		set = make(map[string]struct{})
		r.users[userID] = set
		first = true
	}
	set[connID] = struct{}{}
	r.conns[connID] = &registration{
		userID:     userID,
		pusher:     p,
		admittedAt: time.Now(),
	}
	return first
}

// Evict removes a connection given only its id and reports the owning user
// and whether it was the user's last connection. An unknown id returns
// ok == false; duplicate disconnect signals are expected, not exceptional.
func (r *Registry) Evict(connID string) (userID string, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, exists := r.conns[connID]
	if !exists {
		return "", false, false
	}
	userID = reg.userID
	last = r.removeLocked(connID)
	return userID, last, true
}

// removeLocked deletes a known connection and reports whether it was the
// owner's last. Caller must hold the write lock.
func (r *Registry) removeLocked(connID string) (last bool) {
	reg := r.conns[connID]
	delete(r.conns, connID)

	set := r.users[reg.userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, reg.userID)
		return true
	}
	return false
}

// IsOnline reports whether a user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, online := r.users[userID]
	return online
}

// OnlineUserIDs returns a snapshot of all users with live connections.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for userID := range r.users {
		ids = append(ids, userID)
	}
	return ids
}

// UserPushers returns the pushers for all of a user's live connections.
func (r *Registry) UserPushers(userID string) []Pusher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, exists := r.users[userID]
	if !exists {
		return nil
	}
	pushers := make([]Pusher, 0, len(set))
	for connID := range set {
		pushers = append(pushers, r.conns[connID].pusher)
	}
	return pushers
}

// Pushers resolves connection ids to pushers, skipping unknown ids. A
// connection may legitimately disappear between resolution and push.
func (r *Registry) Pushers(connIDs []string) []Pusher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pushers := make([]Pusher, 0, len(connIDs))
	for _, connID := range connIDs {
		if reg, exists := r.conns[connID]; exists {
			pushers = append(pushers, reg.pusher)
		}
	}
	return pushers
}

// AllPushers returns the pushers of every live connection.
func (r *Registry) AllPushers() []Pusher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pushers := make([]Pusher, 0, len(r.conns))
	for _, reg := range r.conns {
		pushers = append(pushers, reg.pusher)
	}
	return pushers
}

// ConnectionIDs returns a snapshot of every live connection id.
func (r *Registry) ConnectionIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for connID := range r.conns {
		ids = append(ids, connID)
	}
	return ids
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// UserCount returns the number of distinct online users.
func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
