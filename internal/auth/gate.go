package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/friendsofgo/errors"

	"pixelgram-realtime/pkg/jwt"
	"pixelgram-realtime/pkg/log"
)

// ErrNoCredential indicates a connection attempt without a credential.
var ErrNoCredential = errors.New("no credential supplied")

// VerifyFunc validates a credential and returns the user id it belongs to.
// The function may suspend on external calls (database, cache); the caller
// must not admit the connection until it returns.
type VerifyFunc func(ctx context.Context, credential string) (userID string, err error)

// JWTVerify adapts a jwt.Verifier to a VerifyFunc.
func JWTVerify(v *jwt.Verifier) VerifyFunc {
	return func(_ context.Context, credential string) (string, error) {
		return v.ExtractUserID(credential)
	}
}

// cacheEntry is a cached successful verification.
type cacheEntry struct {
	userID    string
	expiresAt time.Time
}

// Gate validates credentials at connection establishment. Successful
// verifications are cached with a TTL so a reconnect storm does not hit the
// delegate verifier once per attempt. Failures are never cached: a client
// retrying with a fresh credential must not see a stale rejection.
type Gate struct {
	verify VerifyFunc

	mu    sync.RWMutex
	cache map[string]*cacheEntry
	ttl   time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	logger log.Logger
}

// NewGate creates a Gate around a verify function. A ttl of zero disables
// caching.
func NewGate(verify VerifyFunc, ttl time.Duration, logger log.Logger) *Gate {
	g := &Gate{
		verify: verify,
		cache:  make(map[string]*cacheEntry),
		ttl:    ttl,
		logger: logger,
	}

	if ttl > 0 {
		go g.cleanupLoop()
	}
	return g
}

// Verify validates a credential and returns the owning user id.
func (g *Gate) Verify(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrNoCredential
	}

	if g.ttl > 0 {
		g.mu.RLock()
		entry, exists := g.cache[credential]
		g.mu.RUnlock()

		if exists && time.Now().Before(entry.expiresAt) {
			g.hits.Add(1)
			return entry.userID, nil
		}
	}
	g.misses.Add(1)

	userID, err := g.verify(ctx, credential)
	if err != nil {
		return "", err
	}

	if g.ttl > 0 {
		g.mu.Lock()
		g.cache[credential] = &cacheEntry{
			userID:    userID,
			expiresAt: time.Now().Add(g.ttl),
		}
		g.mu.Unlock()
	}
	return userID, nil
}

// cleanupLoop periodically removes expired cache entries.
func (g *Gate) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		g.cleanup()
	}
}

func (g *Gate) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for credential, entry := range g.cache {
		if now.After(entry.expiresAt) {
			delete(g.cache, credential)
		}
	}
}

// CacheStats returns verification cache counters.
func (g *Gate) CacheStats() (hits, misses int64, size int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hits.Load(), g.misses.Load(), len(g.cache)
}
