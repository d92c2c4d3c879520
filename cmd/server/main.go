package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pixelgram-realtime/config"
	"pixelgram-realtime/internal/auth"
	"pixelgram-realtime/internal/ingest"
	"pixelgram-realtime/internal/realtime"
	"pixelgram-realtime/internal/server"
	"pixelgram-realtime/pkg/jwt"
	"pixelgram-realtime/pkg/log"
	"pixelgram-realtime/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx := context.Background()
	logger.Info(ctx, "starting pixelgram realtime service")

	redisClient, err := redis.NewClient(redis.Config{
		Addr:            cfg.Redis.Addr,
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		UseTLS:          cfg.Redis.UseTLS,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolSize:        cfg.Redis.PoolSize,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Redis.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatalf(ctx, "failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Infof(ctx, "redis connected to %s", cfg.Redis.Addr)

	verifier := jwt.NewVerifier(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Issuer:    cfg.JWT.Issuer,
	})
	gate := auth.NewGate(auth.JWTVerify(verifier), cfg.Auth.VerifyCacheTTL, logger)

	hub := realtime.NewHub(logger, cfg.WebSocket.MaxConnections)

	subscriber := ingest.NewSubscriber(redisClient, hub, ingest.Config{
		ChannelPattern: cfg.Ingest.ChannelPattern,
		MaxRetries:     cfg.Ingest.MaxRetries,
		RetryDelay:     cfg.Ingest.RetryDelay,
	}, logger)
	if err := subscriber.Start(); err != nil {
		logger.Fatalf(ctx, "failed to start ingest subscriber: %v", err)
	}
	logger.Info(ctx, "ingest subscriber started")

	wsHandler := realtime.NewHandler(hub, gate, realtime.HandlerConfig{
		PongWait:        cfg.WebSocket.PongWait,
		PingPeriod:      cfg.WebSocket.PingInterval,
		WriteWait:       cfg.WebSocket.WriteWait,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		SendBufferSize:  cfg.WebSocket.SendBufferSize,
		CookieName:      cfg.Auth.CookieName,
	}, logger)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	wsHandler.SetupRoutes(router)

	srv := server.New(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Router:      router,
		Logger:      logger,
		Hub:         hub,
		RedisClient: redisClient,
		Subscriber:  subscriber,
		Gate:        gate,
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Errorf(ctx, "server error: %v", err)
		}
	}()
	logger.Infof(ctx, "realtime server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := subscriber.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "error shutting down ingest subscriber: %v", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "error shutting down hub: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "error shutting down server: %v", err)
	}

	logger.Info(ctx, "shutdown complete")
}
