package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthProvider reports ingest subscriber health.
type HealthProvider interface {
	GetHealthInfo() (active bool, lastMessageAt time.Time, pattern string)
	Stats() (received, malformed int64)
}

// GateStatsProvider reports authentication gate cache counters.
type GateStatsProvider interface {
	CacheStats() (hits, misses int64, size int)
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    int64             `json:"uptime_seconds"`
	Redis     *RedisHealth      `json:"redis"`
	Realtime  *RealtimeInfo     `json:"realtime"`
	Ingest    *SubscriberHealth `json:"ingest,omitempty"`
}

// RedisHealth is the Redis portion of the health response.
type RedisHealth struct {
	Status string  `json:"status"`
	PingMs float64 `json:"ping_ms,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// RealtimeInfo is the hub portion of the health response.
type RealtimeInfo struct {
	ActiveConnections int `json:"active_connections"`
	OnlineUsers       int `json:"online_users"`
	ActiveRooms       int `json:"active_rooms"`
}

// SubscriberHealth is the ingest portion of the health response.
type SubscriberHealth struct {
	Active        bool      `json:"active"`
	LastMessageAt time.Time `json:"last_message_at,omitempty"`
	Pattern       string    `json:"pattern"`
}

func healthHandler(c *gin.Context, cfg Config) {
	ctx := context.Background()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(startTime).Seconds()),
	}

	redisHealth := &RedisHealth{Status: "connected"}
	pingDuration, err := cfg.RedisClient.Ping(ctx)
	if err != nil {
		redisHealth.Status = "disconnected"
		redisHealth.Error = err.Error()
		response.Status = "degraded"
		cfg.Logger.Errorf(ctx, "redis health check failed: %v", err)
	} else {
		redisHealth.PingMs = float64(pingDuration.Microseconds()) / 1000.0
	}
	response.Redis = redisHealth

	stats := cfg.Hub.Stats()
	response.Realtime = &RealtimeInfo{
		ActiveConnections: stats.ActiveConnections,
		OnlineUsers:       stats.OnlineUsers,
		ActiveRooms:       stats.ActiveRooms,
	}

	if cfg.Subscriber != nil {
		active, lastMessageAt, pattern := cfg.Subscriber.GetHealthInfo()
		response.Ingest = &SubscriberHealth{
			Active:        active,
			LastMessageAt: lastMessageAt,
			Pattern:       pattern,
		}
		if !active {
			response.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
