package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListPins returns pinned messages, optionally scoped to a conversation.
func (h *Handler) ListPins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pins": h.store.Pins(c.Query("conversation_id"))})
}

type pinRequest struct {
	MessageID int64 `json:"message_id"`
}

// PinMessage pins a message from the selected conversation's log.
func (h *Handler) PinMessage(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.MessageID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_id is required"})
		return
	}

	for _, msg := range h.store.Flatten() {
		if msg.ID == req.MessageID {
			pin := h.store.Pin(msg)
			h.snapshotPins()
			c.JSON(http.StatusCreated, gin.H{"pin": pin})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "message not found in the open conversation"})
}

// UnpinMessage removes the pin for a message.
func (h *Handler) UnpinMessage(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	h.store.Unpin(messageID)
	h.snapshotPins()
	c.Status(http.StatusNoContent)
}
