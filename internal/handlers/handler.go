// Package handlers exposes the bridge core to local UI clients over a
// small REST facade.
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-bridge/internal/models"
	"chat-bridge/internal/observability"
	"chat-bridge/internal/session"
	"chat-bridge/internal/store"
	"chat-bridge/internal/telemetry"
	"chat-bridge/internal/upstream"
)

// Uploader stores attachment files on the platform.
type Uploader interface {
	UploadFiles(ctx context.Context, files []models.FileUpload) ([]models.Attachment, error)
}

// Snapshotter persists the restorable slice of local state.
type Snapshotter interface {
	SaveConversations(convs []models.Conversation) error
	SavePins(pins []models.PinnedMessage) error
}

// Handler carries the collaborators every route needs.
type Handler struct {
	chat     upstream.Chat
	store    *store.Store
	session  *session.Session
	uploader Uploader
	cache    Snapshotter
	audit    *telemetry.AuditEmitter
}

// New constructs the facade handler. cache and audit may be nil.
func New(chat upstream.Chat, st *store.Store, sess *session.Session, uploader Uploader, cache Snapshotter, audit *telemetry.AuditEmitter) *Handler {
	return &Handler{
		chat:     chat,
		store:    st,
		session:  sess,
		uploader: uploader,
		cache:    cache,
		audit:    audit,
	}
}

// Register mounts every facade route on the group.
func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/conversations", h.ListConversations)
	r.POST("/conversations", h.CreateConversation)
	r.POST("/conversations/refresh", h.RefreshConversations)
	r.POST("/conversations/:id/select", h.SelectConversation)
	r.GET("/conversations/:id/messages", h.GetMessages)
	r.POST("/conversations/:id/archive", h.ArchiveConversation)
	r.POST("/conversations/:id/unarchive", h.UnarchiveConversation)

	r.POST("/messages", h.SendMessage)
	r.POST("/typing", h.Typing)
	r.PUT("/reply", h.SetReply)
	r.DELETE("/reply", h.ClearReply)

	r.GET("/pins", h.ListPins)
	r.POST("/pins", h.PinMessage)
	r.DELETE("/pins/:message_id", h.UnpinMessage)

	r.GET("/presence", h.Presence)
	r.POST("/uploads", h.Upload)
}

// writeProtocolError maps a protocol failure onto the facade's status
// codes: transport-level failures are a bad gateway, everything else is
// the server's rejection passed through as a bad request.
func writeProtocolError(c *gin.Context, err error) {
	if errors.Is(err, upstream.ErrServerUnreachable) ||
		errors.Is(err, upstream.ErrNotConnected) ||
		errors.Is(err, upstream.ErrConnectionClosed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "timed out") {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *Handler) emitAudit(c *gin.Context, text string) {
	if h.audit == nil {
		return
	}
	userID := h.session.UserID
	h.audit.Emit(c.Request.Context(), "info", text, observability.MetaFromRequest(c.Request).RequestID, &userID)
}

func (h *Handler) snapshotConversations() {
	if h.cache == nil {
		return
	}
	convs := append(h.store.Active(), h.store.Archived()...)
	if err := h.cache.SaveConversations(convs); err != nil {
		log.Printf("conversation snapshot failed: %v", err)
	}
}

func (h *Handler) snapshotPins() {
	if h.cache == nil {
		return
	}
	if err := h.cache.SavePins(h.store.Pins("")); err != nil {
		log.Printf("pin snapshot failed: %v", err)
	}
}
