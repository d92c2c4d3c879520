package realtime

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

func TestRegistryAdmitEvict(t *testing.T) {
	logger := &mockLogger{}

	t.Run("first admit reports first connection", func(t *testing.T) {
		r := NewRegistry(logger)

		if first := r.Admit("u1", "c1", &fakePusher{}); !first {
			t.Error("expected first connection")
		}
		if first := r.Admit("u1", "c2", &fakePusher{}); first {
			t.Error("second connection must not be first")
		}
		if !r.IsOnline("u1") {
			t.Error("expected u1 online")
		}
	})

	t.Run("evict reports owner and last connection", func(t *testing.T) {
		r := NewRegistry(logger)
		r.Admit("u1", "c1", &fakePusher{})
		r.Admit("u1", "c2", &fakePusher{})

		userID, last, ok := r.Evict("c1")
		if !ok {
			t.Fatal("expected evict to find c1")
		}
		if userID != "u1" {
			t.Errorf("expected owner u1, got %s", userID)
		}
		if last {
			t.Error("c1 is not the last connection")
		}
		if !r.IsOnline("u1") {
			t.Error("u1 must remain online")
		}

		userID, last, ok = r.Evict("c2")
		if !ok || userID != "u1" {
			t.Fatalf("expected evict to find c2 owned by u1, got ok=%v user=%s", ok, userID)
		}
		if !last {
			t.Error("c2 was the last connection")
		}
		if r.IsOnline("u1") {
			t.Error("u1 must be offline")
		}
	})

	t.Run("evict of unknown id is a no-op", func(t *testing.T) {
		r := NewRegistry(logger)
		r.Admit("u1", "c1", &fakePusher{})

		if _, _, ok := r.Evict("nope"); ok {
			t.Error("unknown id must not report ok")
		}

		// Duplicate disconnect for the same physical drop.
		r.Evict("c1")
		if _, _, ok := r.Evict("c1"); ok {
			t.Error("second evict of c1 must be a no-op")
		}
		if r.ConnectionCount() != 0 {
			t.Errorf("expected 0 connections, got %d", r.ConnectionCount())
		}
	})

	t.Run("no empty user entries survive", func(t *testing.T) {
		r := NewRegistry(logger)
		r.Admit("u1", "c1", &fakePusher{})
		r.Evict("c1")

		if r.UserCount() != 0 {
			t.Errorf("expected 0 users after last evict, got %d", r.UserCount())
		}
		if ids := r.OnlineUserIDs(); len(ids) != 0 {
			t.Errorf("expected no online users, got %v", ids)
		}
	})
}

func TestRegistrySnapshots(t *testing.T) {
	logger := &mockLogger{}
	r := NewRegistry(logger)

	p1, p2 := &fakePusher{}, &fakePusher{}
	r.Admit("u1", "c1", p1)
	r.Admit("u1", "c2", p2)
	r.Admit("u2", "c3", &fakePusher{})

	t.Run("user pushers", func(t *testing.T) {
		if got := len(r.UserPushers("u1")); got != 2 {
			t.Errorf("expected 2 pushers for u1, got %d", got)
		}
		if got := r.UserPushers("ghost"); got != nil {
			t.Errorf("expected nil for unknown user, got %v", got)
		}
	})

	t.Run("resolve connection ids", func(t *testing.T) {
		pushers := r.Pushers([]string{"c1", "gone", "c3"})
		if len(pushers) != 2 {
			t.Errorf("expected 2 resolved pushers, got %d", len(pushers))
		}
	})

	t.Run("counts", func(t *testing.T) {
		if r.ConnectionCount() != 3 {
			t.Errorf("expected 3 connections, got %d", r.ConnectionCount())
		}
		if r.UserCount() != 2 {
			t.Errorf("expected 2 users, got %d", r.UserCount())
		}
		if len(r.AllPushers()) != 3 {
			t.Errorf("expected 3 pushers, got %d", len(r.AllPushers()))
		}
	})
}

func TestRegistryConcurrentFirstEdge(t *testing.T) {
	logger := &mockLogger{}
	r := NewRegistry(logger)

	const racers = 50
	var wg sync.WaitGroup
	firsts := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			firsts <- r.Admit("u1", fmt.Sprintf("c%d", i), &fakePusher{})
		}(i)
	}
	wg.Wait()
	close(firsts)

	firstCount := 0
	for first := range firsts {
		if first {
			firstCount++
		}
	}
	if firstCount != 1 {
		t.Errorf("expected exactly one first connection, got %d", firstCount)
	}
}

func TestRegistryRandomizedChurn(t *testing.T) {
	logger := &mockLogger{}
	r := NewRegistry(logger)
	rng := rand.New(rand.NewSource(42))

	const conns = 100
	const users = 50

	type op struct {
		admit  bool
		userID string
		connID string
	}

	// Every admit gets a matching evict; interleave them randomly while
	// keeping each evict after its admit.
	ops := make([]op, 0, conns*2)
	live := make([]op, 0, conns)
	admitted := 0
	for admitted < conns || len(live) > 0 {
		if admitted < conns && (len(live) == 0 || rng.Intn(2) == 0) {
			o := op{
				admit:  true,
				userID: fmt.Sprintf("u%d", rng.Intn(users)),
				connID: fmt.Sprintf("c%d", admitted),
			}
			ops = append(ops, o)
			live = append(live, o)
			admitted++
		} else {
			i := rng.Intn(len(live))
			o := live[i]
			live = append(live[:i], live[i+1:]...)
			o.admit = false
			ops = append(ops, o)
		}
	}

	net := make(map[string]int)
	firstEdges, lastEdges := 0, 0
	for _, o := range ops {
		if o.admit {
			if r.Admit(o.userID, o.connID, &fakePusher{}) {
				firstEdges++
			}
			net[o.userID]++
		} else {
			_, last, ok := r.Evict(o.connID)
			if !ok {
				t.Fatalf("evict of live connection %s failed", o.connID)
			}
			if last {
				lastEdges++
			}
			net[o.userID]--
		}
	}

	for userID, count := range net {
		if count != 0 {
			t.Errorf("user %s has net count %d after full churn", userID, count)
		}
		if r.IsOnline(userID) {
			t.Errorf("user %s still online after full churn", userID)
		}
	}
	if r.ConnectionCount() != 0 || r.UserCount() != 0 {
		t.Errorf("registry not empty: %d conns, %d users", r.ConnectionCount(), r.UserCount())
	}
	if firstEdges != lastEdges {
		t.Errorf("online edges (%d) != offline edges (%d) after full churn", firstEdges, lastEdges)
	}
}
