package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pixelgram-realtime/internal/auth"
	"pixelgram-realtime/pkg/log"
)

// HandlerConfig holds WebSocket handler configuration.
type HandlerConfig struct {
	PongWait        time.Duration
	PingPeriod      time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CookieName      string
}

// Handler upgrades authenticated requests to WebSocket connections and
// admits them into the hub.
type Handler struct {
	hub      *Hub
	gate     *auth.Gate
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   log.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, gate *auth.Gate, cfg HandlerConfig, logger log.Logger) *Handler {
	return &Handler{
		hub:  hub,
		gate: gate,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			// The credential, not the origin, is what admits a connection.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleWebSocket handles a WebSocket connection request. The credential is
// verified before the upgrade: a connection is never registered anywhere
// until the gate accepts it.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	credential := h.extractCredential(c)

	userID, err := h.gate.Verify(c.Request.Context(), credential)
	if err != nil {
		h.logger.Warnf(context.Background(), "connection rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or missing credential",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf(context.Background(), "failed to upgrade connection for user %s: %v", userID, err)
		return
	}

	connection := NewConnection(h.hub, conn, uuid.New().String(), userID, ConnConfig{
		PongWait:       h.cfg.PongWait,
		PingPeriod:     h.cfg.PingPeriod,
		WriteWait:      h.cfg.WriteWait,
		MaxMessageSize: h.cfg.MaxMessageSize,
		SendBufferSize: h.cfg.SendBufferSize,
	}, h.logger)

	if err := h.hub.Admit(userID, connection.ID(), connection); err != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "connection limit reached"),
			time.Now().Add(h.cfg.WriteWait),
		)
		conn.Close()
		return
	}

	connection.Start()
	h.logger.Infof(context.Background(), "connection %s established for user %s", connection.ID(), userID)
}

// extractCredential pulls the session token from the query string, falling
// back to the auth cookie used by the web client.
func (h *Handler) extractCredential(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if h.cfg.CookieName != "" {
		if token, err := c.Cookie(h.cfg.CookieName); err == nil {
			return token
		}
	}
	return ""
}

// SetupRoutes registers the WebSocket endpoint.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/ws", h.HandleWebSocket)
}
