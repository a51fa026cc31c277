package ws

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-bridge/internal/observability"
)

// Handler upgrades UI clients onto the push stream.
type Handler struct {
	hub      *Hub
	apiToken string
	userID   int
}

// NewHandler constructs a Handler. An empty apiToken leaves the stream
// open to local clients.
func NewHandler(hub *Hub, apiToken string, userID int) *Handler {
	return &Handler{hub: hub, apiToken: apiToken, userID: userID}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the subscriber.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-bridge/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}
	if !h.tokenValid(token) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      h.userID,
		Meta:        observability.MetaFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(conn, info)

	observability.IncWSActive("ui")
	observability.IncWSEvent("ui", "ws_connect")
	_ = observability.PublishEvent(ctx, uiRoutingKey, lifecycleEnvelope(info, "ws_connect", 0, ""))

	// Keep the connection alive and clean up on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conn)
			observability.DecWSActive("ui")
			observability.IncWSEvent("ui", "ws_disconnect")
			_ = observability.PublishEvent(ctx, uiRoutingKey, lifecycleEnvelope(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ui", "ws_error")
					_ = observability.PublishEvent(ctx, uiRoutingKey, lifecycleEnvelope(info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), closeReason))
				}
				return
			}
		}
	}()
}

func (h *Handler) tokenValid(header string) bool {
	if h.apiToken == "" {
		return true
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.apiToken)) == 1
}
