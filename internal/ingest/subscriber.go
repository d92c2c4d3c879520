package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/friendsofgo/errors"
	redis_client "github.com/redis/go-redis/v9"

	"pixelgram-realtime/internal/realtime"
	"pixelgram-realtime/pkg/log"
	"pixelgram-realtime/pkg/redis"
)

// Channel name prefixes the API layer publishes domain events on.
//
//	rt:user:{userID}   events for one user (notification, message-new, ...)
//	rt:room:{roomID}   events for one room (message-read in a conversation)
//	rt:broadcast       events for every connected client
const (
	channelPrefix    = "rt"
	targetKindUser   = "user"
	targetKindRoom   = "room"
	channelBroadcast = "rt:broadcast"
)

// envelope is the payload the API layer publishes.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Config holds subscriber settings.
type Config struct {
	ChannelPattern string
	MaxRetries     int
	RetryDelay     time.Duration
}

// Subscriber bridges domain events published by the API layer over Redis
// pub/sub into hub deliveries. It is the cross-process face of the deliver
// API.
type Subscriber struct {
	client *redis.Client
	hub    *realtime.Hub
	cfg    Config
	logger log.Logger

	pubsub *redis_client.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu            sync.RWMutex
	lastMessageAt time.Time
	isActive      atomic.Bool
	received      atomic.Int64
	malformed     atomic.Int64
}

// NewSubscriber creates a subscriber over the given Redis client and hub.
func NewSubscriber(client *redis.Client, hub *realtime.Hub, cfg Config, logger log.Logger) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.ChannelPattern == "" {
		cfg.ChannelPattern = channelPrefix + ":*"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}

	return &Subscriber{
		client: client,
		hub:    hub,
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start subscribes to the channel pattern and begins routing messages.
func (s *Subscriber) Start() error {
	s.pubsub = s.client.PSubscribe(s.ctx, s.cfg.ChannelPattern)
	s.isActive.Store(true)

	s.logger.Infof(s.ctx, "ingest subscriber started, listening on pattern: %s", s.cfg.ChannelPattern)

	go s.listen()
	return nil
}

// listen consumes pub/sub messages until shutdown, reconnecting on channel
// closure.
func (s *Subscriber) listen() {
	defer close(s.done)

	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info(context.Background(), "ingest subscriber shutting down")
			return

		case msg, ok := <-ch:
			if !ok {
				s.logger.Error(s.ctx, "ingest pub/sub channel closed, reconnecting")
				if err := s.reconnect(); err != nil {
					s.logger.Errorf(s.ctx, "failed to reconnect ingest subscriber: %v", err)
					return
				}
				ch = s.pubsub.Channel()
				continue
			}
			s.handleMessage(msg.Channel, msg.Payload)
		}
	}
}

// handleMessage routes one published message to the hub.
func (s *Subscriber) handleMessage(channel, payload string) {
	s.mu.Lock()
	s.lastMessageAt = time.Now()
	s.mu.Unlock()
	s.received.Add(1)

	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		s.malformed.Add(1)
		s.logger.Errorf(s.ctx, "failed to unmarshal ingest message on %s: %v", channel, err)
		return
	}
	if env.Event == "" || len(env.Payload) == 0 {
		s.malformed.Add(1)
		s.logger.Warnf(s.ctx, "ingest message on %s has no event name or payload", channel)
		return
	}

	ev := realtime.NewRawEvent(realtime.EventName(env.Event), env.Payload)

	if channel == channelBroadcast {
		s.hub.Broadcast(ev)
		return
	}

	// rt:{kind}:{id}
	parts := strings.SplitN(channel, ":", 3)
	if len(parts) != 3 || parts[0] != channelPrefix || parts[2] == "" {
		s.malformed.Add(1)
		s.logger.Warnf(s.ctx, "invalid ingest channel format: %s", channel)
		return
	}

	switch parts[1] {
	case targetKindUser:
		s.hub.Deliver(realtime.UserTarget(parts[2]), ev)
	case targetKindRoom:
		s.hub.Deliver(realtime.RoomTarget(parts[2]), ev)
	default:
		s.malformed.Add(1)
		s.logger.Warnf(s.ctx, "unknown ingest target kind %q on channel %s", parts[1], channel)
		return
	}

	s.logger.Debugf(s.ctx, "routed %s event from %s", env.Event, channel)
}

// reconnect re-establishes the pattern subscription with bounded retries.
func (s *Subscriber) reconnect() error {
	for i := 0; i < s.cfg.MaxRetries; i++ {
		s.logger.Infof(s.ctx, "reconnecting ingest subscriber (attempt %d/%d)", i+1, s.cfg.MaxRetries)

		if s.pubsub != nil {
			s.pubsub.Close()
		}
		s.pubsub = s.client.PSubscribe(s.ctx, s.cfg.ChannelPattern)

		if _, err := s.pubsub.Receive(s.ctx); err == nil {
			s.logger.Info(s.ctx, "ingest subscriber reconnected")
			return nil
		}

		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}
	return errors.Errorf("failed to reconnect after %d attempts", s.cfg.MaxRetries)
}

// GetHealthInfo returns the subscriber's health snapshot.
func (s *Subscriber) GetHealthInfo() (active bool, lastMessageAt time.Time, pattern string) {
	s.mu.RLock()
	lastMsg := s.lastMessageAt
	s.mu.RUnlock()

	return s.isActive.Load(), lastMsg, s.cfg.ChannelPattern
}

// Stats returns message counters.
func (s *Subscriber) Stats() (received, malformed int64) {
	return s.received.Load(), s.malformed.Load()
}

// Shutdown stops the subscriber and waits for the listen loop to exit.
func (s *Subscriber) Shutdown(ctx context.Context) error {
	s.isActive.Store(false)
	s.cancel()

	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			s.logger.Errorf(context.Background(), "error closing ingest pub/sub: %v", err)
		}
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
