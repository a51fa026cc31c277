package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-bridge/internal/upstream"
)

// ListConversations returns the sidebar view: active conversations merged
// by counterpart, each annotated with the counterpart's presence, with the
// archived partition alongside.
func (h *Handler) ListConversations(c *gin.Context) {
	merged := h.store.MergeByCounterpart()
	online := make(map[int]bool, len(merged))
	for _, conv := range merged {
		online[conv.OtherUser.ID] = h.store.IsOnline(conv.OtherUser.ID)
	}
	c.JSON(http.StatusOK, gin.H{
		"conversations": merged,
		"online":        online,
		"archived":      h.store.Archived(),
		"selected_id":   h.store.SelectedID(),
	})
}

// RefreshConversations refetches the conversation list from the platform
// and replaces the local partitions.
func (h *Handler) RefreshConversations(c *gin.Context) {
	if err := h.chat.RefreshConversations(c.Request.Context()); err != nil {
		writeProtocolError(c, err)
		return
	}
	h.snapshotConversations()
	c.JSON(http.StatusOK, gin.H{
		"conversations": h.store.MergeByCounterpart(),
		"archived":      h.store.Archived(),
	})
}

// CreateConversation starts a new conversation and inserts its summary.
func (h *Handler) CreateConversation(c *gin.Context) {
	var req upstream.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ReceiverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver_id is required"})
		return
	}

	result, err := h.chat.CreateConversation(c.Request.Context(), req)
	if err != nil {
		writeProtocolError(c, err)
		return
	}

	conv, _ := h.store.Conversation(result.ConversationID)
	h.snapshotConversations()
	h.emitAudit(c, fmt.Sprintf("conversation %s created with user %d", result.ConversationID, req.ReceiverID))
	c.JSON(http.StatusCreated, gin.H{"conversation": conv, "result": result})
}

// SelectConversation opens a conversation: selection switches, the room
// is joined and the history is loaded.
func (h *Handler) SelectConversation(c *gin.Context) {
	id := c.Param("id")
	if err := h.chat.SelectConversation(c.Request.Context(), id); err != nil {
		writeProtocolError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"selected_id": h.store.SelectedID(),
		"groups":      h.store.DayGroups(),
	})
}

// ArchiveConversation moves a conversation to the archived partition.
func (h *Handler) ArchiveConversation(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.Conversation(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	h.store.Archive(id)
	h.snapshotConversations()
	h.emitAudit(c, fmt.Sprintf("conversation %s archived", id))
	c.JSON(http.StatusOK, gin.H{"archived": h.store.Archived()})
}

// UnarchiveConversation restores a conversation to the active list.
func (h *Handler) UnarchiveConversation(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.Conversation(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	h.store.Unarchive(id)
	h.snapshotConversations()
	c.JSON(http.StatusOK, gin.H{"conversations": h.store.MergeByCounterpart()})
}
