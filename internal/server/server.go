package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pixelgram-realtime/internal/realtime"
	"pixelgram-realtime/pkg/log"
	"pixelgram-realtime/pkg/redis"
)

// Server is the HTTP server hosting the WebSocket endpoint and the
// operational routes.
type Server struct {
	config Config
	server *http.Server
}

// Config holds server configuration and wiring.
type Config struct {
	Host        string
	Port        int
	Router      *gin.Engine
	Logger      log.Logger
	Hub         *realtime.Hub
	RedisClient *redis.Client
	Subscriber  HealthProvider
	Gate        GateStatsProvider
}

// New creates a Server and registers the operational routes.
func New(cfg Config) *Server {
	setupRoutes(cfg)

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:        cfg.Router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return &Server{
		config: cfg,
		server: server,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.config.Logger.Infof(context.Background(), "starting HTTP server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.config.Logger.Info(ctx, "shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(cfg Config) {
	cfg.Router.GET("/health", func(c *gin.Context) {
		healthHandler(c, cfg)
	})
	cfg.Router.GET("/stats", func(c *gin.Context) {
		statsHandler(c, cfg)
	})
}
