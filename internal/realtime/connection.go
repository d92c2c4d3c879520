package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pixelgram-realtime/pkg/log"
)

// ConnConfig holds per-connection transport timings.
type ConnConfig struct {
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

// Connection is one live WebSocket session for an authenticated user. It
// implements Pusher. A connection is created after the gate verifies the
// credential and destroyed on transport close; a reconnecting client always
// gets a brand-new Connection with a new id.
type Connection struct {
	id     string
	userID string

	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound frames. The channel is never closed;
	// writePump exits via done so a racing Push cannot hit a closed channel.
	send chan []byte

	cfg    ConnConfig
	logger log.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewConnection creates a Connection over an upgraded WebSocket.
func NewConnection(hub *Hub, conn *websocket.Conn, id, userID string, cfg ConnConfig, logger log.Logger) *Connection {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	return &Connection{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, cfg.SendBufferSize),
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// ID returns the connection id.
func (c *Connection) ID() string { return c.id }

// UserID returns the owning user id.
func (c *Connection) UserID() string { return c.userID }

// Push queues an encoded event for delivery, without blocking. It returns
// false when the connection is closing or the send buffer is full; frames
// queued before the false are still flushed in order.
func (c *Connection) Push(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close tears down the transport. Idempotent; both pumps exit after it.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Start runs the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump pumps inbound frames from the WebSocket to the hub.
//
// There is at most one reader per connection; all reads happen on this
// goroutine. Exiting the loop, for any cause, evicts the connection.
func (c *Connection) readPump() {
	defer func() {
		c.hub.Evict(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Errorf(context.Background(), "read error for user %s (conn %s): %v", c.userID, c.id, err)
			}
			return
		}
		c.handleInbound(data)
	}
}

// handleInbound maps one client frame to a hub call. Malformed frames are
// logged and dropped; they never close the socket.
func (c *Connection) handleInbound(data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		c.logger.Warnf(context.Background(), "dropping frame from user %s: %v", c.userID, err)
		return
	}

	switch msg.Action {
	case ActionJoinRoom:
		c.hub.JoinRoom(c.id, msg.Room)
	case ActionLeaveRoom:
		c.hub.LeaveRoom(c.id, msg.Room)
	case ActionTypingStart:
		c.hub.DeliverToRoom(msg.Room, NewTypingEvent(msg.Room, c.userID, true))
	case ActionTypingStop:
		c.hub.DeliverToRoom(msg.Room, NewTypingEvent(msg.Room, c.userID, false))
	}
}

// writePump pumps queued frames to the WebSocket and keeps the connection
// alive with pings.
//
// There is at most one writer per connection; all writes happen on this
// goroutine.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Drain frames already queued into the same websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
