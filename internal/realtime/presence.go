package realtime

import (
	"context"
	"sync/atomic"
	"time"

	"pixelgram-realtime/pkg/log"
)

// PresenceTracker turns registry admission edges into presence-changed
// broadcasts. It is strictly edge triggered: a user opening five tabs
// produces one online event, and closing four of them produces none.
//
// Presence broadcasts go to every connected client. The web client filters
// them against its own follow graph; scoping fan-out server side is a
// product decision this service does not make.
type PresenceTracker struct {
	router *Router
	logger log.Logger

	onlineEvents  atomic.Int64
	offlineEvents atomic.Int64
}

// NewPresenceTracker creates a tracker that broadcasts through the router.
func NewPresenceTracker(router *Router, logger log.Logger) *PresenceTracker {
	return &PresenceTracker{
		router: router,
		logger: logger,
	}
}

// ConnectionAdmitted records an admit. Only a first connection (offline to
// online edge) emits a broadcast.
func (p *PresenceTracker) ConnectionAdmitted(userID string, first bool) {
	if !first {
		return
	}
	p.onlineEvents.Add(1)
	p.logger.Infof(context.Background(), "user %s is online", userID)
	p.router.Broadcast(NewPresenceEvent(userID, true, time.Now()))
}

// ConnectionEvicted records an evict. Only a last connection (online to
// offline edge) emits a broadcast.
func (p *PresenceTracker) ConnectionEvicted(userID string, last bool) {
	if !last {
		return
	}
	p.offlineEvents.Add(1)
	p.logger.Infof(context.Background(), "user %s is offline", userID)
	p.router.Broadcast(NewPresenceEvent(userID, false, time.Now()))
}

// Stats returns the number of online and offline edges broadcast so far.
func (p *PresenceTracker) Stats() (online, offline int64) {
	return p.onlineEvents.Load(), p.offlineEvents.Load()
}
