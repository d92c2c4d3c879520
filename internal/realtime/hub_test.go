package realtime

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/friendsofgo/errors"
)

func TestHubEvictLeavesAllRooms(t *testing.T) {
	logger := &mockLogger{}
	hub := NewHub(logger, 0)

	hub.Admit("u1", "c1", &fakePusher{})
	hub.JoinRoom("c1", "post:a")
	hub.JoinRoom("c1", "post:b")

	hub.Evict("c1")

	for _, roomID := range []string{"post:a", "post:b"} {
		for _, member := range hub.RoomMembers(roomID) {
			if member == "c1" {
				t.Errorf("evicted connection c1 still referenced by room %s", roomID)
			}
		}
	}
}

func TestHubEvictUnknownConnection(t *testing.T) {
	logger := &mockLogger{}
	hub := NewHub(logger, 0)
	hub.Admit("u1", "c1", &fakePusher{})

	// Late disconnect signal for a connection already gone.
	hub.Evict("c1")
	hub.Evict("c1")
	hub.Evict("never-admitted")

	stats := hub.Stats()
	if stats.ActiveConnections != 0 {
		t.Errorf("expected 0 connections, got %d", stats.ActiveConnections)
	}
	if stats.OfflineEvents != 1 {
		t.Errorf("duplicate evicts must not emit extra offline events, got %d", stats.OfflineEvents)
	}
}

func TestHubConnectionCap(t *testing.T) {
	logger := &mockLogger{}
	hub := NewHub(logger, 2)

	if err := hub.Admit("u1", "c1", &fakePusher{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := hub.Admit("u2", "c2", &fakePusher{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := hub.Admit("u3", "c3", &fakePusher{})
	if !errors.Is(err, ErrConnectionLimit) {
		t.Errorf("expected ErrConnectionLimit, got %v", err)
	}
	if hub.IsOnline("u3") {
		t.Error("rejected connection must not appear online")
	}

	// Capacity freed by an evict admits again.
	hub.Evict("c1")
	if err := hub.Admit("u3", "c4", &fakePusher{}); err != nil {
		t.Errorf("expected admit after capacity freed, got %v", err)
	}
}

func TestHubShutdown(t *testing.T) {
	logger := &mockLogger{}
	hub := NewHub(logger, 0)

	p1, p2 := &fakePusher{}, &fakePusher{}
	hub.Admit("u1", "c1", p1)
	hub.Admit("u2", "c2", p2)
	hub.JoinRoom("c1", "post:1")

	if err := hub.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if !p1.closed || !p2.closed {
		t.Error("shutdown must close every connection")
	}
	stats := hub.Stats()
	if stats.ActiveConnections != 0 || stats.OnlineUsers != 0 || stats.ActiveRooms != 0 {
		t.Errorf("expected drained hub, got %+v", stats)
	}
}

func TestHubInterleavedChurn(t *testing.T) {
	logger := &mockLogger{}
	hub := NewHub(logger, 0)
	rng := rand.New(rand.NewSource(7))

	const conns = 100
	const users = 50

	owners := make(map[string]string) // connID -> userID
	live := make([]string, 0, conns)
	net := make(map[string]int)

	admitted := 0
	for admitted < conns || len(live) > 0 {
		// Bias towards admits until all 100 connections have existed, then
		// evict roughly half of what remains.
		if admitted < conns && (len(live) == 0 || rng.Intn(3) != 0) {
			connID := fmt.Sprintf("c%d", admitted)
			userID := fmt.Sprintf("u%d", rng.Intn(users))
			owners[connID] = userID
			if err := hub.Admit(userID, connID, &fakePusher{}); err != nil {
				t.Fatalf("admit failed: %v", err)
			}
			net[userID]++
			live = append(live, connID)
			admitted++
		} else {
			i := rng.Intn(len(live))
			connID := live[i]
			live = append(live[:i], live[i+1:]...)
			hub.Evict(connID)
			net[owners[connID]]--
			if admitted == conns && rng.Intn(2) == 0 {
				break // leave the rest online
			}
		}
	}

	wantOnline := make(map[string]bool)
	for userID, count := range net {
		if count > 0 {
			wantOnline[userID] = true
		}
	}

	got := hub.OnlineUserIDs()
	if len(got) != len(wantOnline) {
		t.Errorf("expected %d online users, got %d", len(wantOnline), len(got))
	}
	for _, userID := range got {
		if !wantOnline[userID] {
			t.Errorf("user %s online with net count %d", userID, net[userID])
		}
	}

	stats := hub.Stats()
	if stats.OnlineEvents-stats.OfflineEvents != int64(len(wantOnline)) {
		t.Errorf("online events (%d) - offline events (%d) != users still online (%d)",
			stats.OnlineEvents, stats.OfflineEvents, len(wantOnline))
	}
}

func TestHubOnlineUserIDs(t *testing.T) {
	logger := &mockLogger{}
	hub := NewHub(logger, 0)

	hub.Admit("u1", "c1", &fakePusher{})
	hub.Admit("u1", "c2", &fakePusher{})
	hub.Admit("u2", "c3", &fakePusher{})
	hub.Evict("c3")

	ids := hub.OnlineUserIDs()
	if len(ids) != 1 || ids[0] != "u1" {
		t.Errorf("expected [u1], got %v", ids)
	}
}
