package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pixelgram-realtime/internal/realtime"
)

// StatsResponse is the operational stats response.
type StatsResponse struct {
	Service   string         `json:"service"`
	Timestamp time.Time      `json:"timestamp"`
	Uptime    int64          `json:"uptime_seconds"`
	Hub       realtime.Stats `json:"hub"`
	Ingest    *IngestStats   `json:"ingest,omitempty"`
	Gate      *GateStats     `json:"gate,omitempty"`
}

// IngestStats is the ingest portion of the stats response.
type IngestStats struct {
	Received  int64 `json:"received"`
	Malformed int64 `json:"malformed"`
}

// GateStats is the authentication gate portion of the stats response.
type GateStats struct {
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	CacheSize   int   `json:"cache_size"`
}

func statsHandler(c *gin.Context, cfg Config) {
	response := StatsResponse{
		Service:   "pixelgram-realtime",
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(startTime).Seconds()),
		Hub:       cfg.Hub.Stats(),
	}

	if cfg.Subscriber != nil {
		received, malformed := cfg.Subscriber.Stats()
		response.Ingest = &IngestStats{
			Received:  received,
			Malformed: malformed,
		}
	}

	if cfg.Gate != nil {
		hits, misses, size := cfg.Gate.CacheStats()
		response.Gate = &GateStats{
			CacheHits:   hits,
			CacheMisses: misses,
			CacheSize:   size,
		}
	}

	c.JSON(http.StatusOK, response)
}
