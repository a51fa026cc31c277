package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-bridge/internal/session"
)

// LinkStatus exposes the upstream connection state.
type LinkStatus interface {
	Connected() bool
	Authenticated() bool
}

// SubscriberCounter exposes the UI push hub population.
type SubscriberCounter interface {
	ClientCount() int
}

// DebugHandler reports the bridge's internals for troubleshooting.
type DebugHandler struct {
	link          LinkStatus
	hub           SubscriberCounter
	store         storeStats
	session       *session.Session
	publisherMode string
}

type storeStats interface {
	SelectedID() string
	OnlineUsers() []int
}

// NewDebugHandler constructs the debug surface.
func NewDebugHandler(link LinkStatus, hub SubscriberCounter, store storeStats, sess *session.Session, publisherMode string) *DebugHandler {
	return &DebugHandler{link: link, hub: hub, store: store, session: sess, publisherMode: publisherMode}
}

// State dumps the live bridge state.
func (h *DebugHandler) State(c *gin.Context) {
	userID, userName := h.session.CurrentUser()
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":   userID,
			"name": userName,
		},
		"upstream": gin.H{
			"connected":     h.link.Connected(),
			"authenticated": h.link.Authenticated(),
		},
		"ui_subscribers": h.hub.ClientCount(),
		"selected_id":    h.store.SelectedID(),
		"online_users":   h.store.OnlineUsers(),
		"publisher_mode": h.publisherMode,
	})
}
