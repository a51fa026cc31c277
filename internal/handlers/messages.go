package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-bridge/internal/models"
	"chat-bridge/internal/upstream"
)

// GetMessages returns the day-grouped log of the selected conversation.
// Only the selection has a log; other conversations are summaries only.
func (h *Handler) GetMessages(c *gin.Context) {
	id := c.Param("id")
	if id != h.store.SelectedID() {
		c.JSON(http.StatusConflict, gin.H{"error": "conversation is not selected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": h.store.DayGroups()})
}

// SendMessage sends one message through the realtime protocol.
func (h *Handler) SendMessage(c *gin.Context) {
	var req upstream.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ConversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id is required"})
		return
	}

	msg, err := h.chat.SendMessage(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, upstream.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		writeProtocolError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

type typingRequest struct {
	ConversationID string `json:"conversation_id"`
	ReceiverID     int    `json:"receiver_id"`
	Typing         bool   `json:"typing"`
}

// Typing forwards a typing start or stop to the counterpart.
func (h *Handler) Typing(c *gin.Context) {
	var req typingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ConversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id is required"})
		return
	}

	if req.Typing {
		h.chat.StartTyping(req.ConversationID, req.ReceiverID)
	} else {
		h.chat.StopTyping(req.ConversationID, req.ReceiverID)
	}
	c.Status(http.StatusNoContent)
}

// SetReply arms the single reply slot for the next send.
func (h *Handler) SetReply(c *gin.Context) {
	var target models.ReplyTarget
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if target.MessageID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_id is required"})
		return
	}
	h.store.SetReply(target)
	c.JSON(http.StatusOK, gin.H{"reply": target})
}

// ClearReply cancels the pending reply.
func (h *Handler) ClearReply(c *gin.Context) {
	h.store.ClearReply()
	c.Status(http.StatusNoContent)
}

// Presence reports who is online and who is typing in the selection.
func (h *Handler) Presence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online": h.store.OnlineUsers(),
		"typing": h.store.TypingUsers(),
	})
}
