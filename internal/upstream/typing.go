package upstream

import (
	"sync"
	"time"
)

// typingState debounces outbound typing notifications. The first call in
// a burst emits user_typing; further calls inside the window only extend
// the auto-stop timer, so a continuously typing user produces one start
// and one stop.
type typingState struct {
	mu             sync.Mutex
	active         bool
	conversationID string
	receiverID     int
	timer          *time.Timer
}

// StartTyping notifies the counterpart that the user is typing in the
// conversation. The stop notification follows automatically when no
// further keystroke arrives within the debounce window.
func (c *Client) StartTyping(conversationID string, receiverID int) {
	c.typing.mu.Lock()
	defer c.typing.mu.Unlock()

	if c.typing.active && c.typing.conversationID == conversationID {
		c.typing.timer.Reset(c.typingWindow)
		return
	}
	if c.typing.active {
		// Switched conversation mid-burst; close out the old one.
		c.conn.Emit("stop_typing", typingPayload{ConversationID: c.typing.conversationID, ReceiverID: c.typing.receiverID})
		c.typing.timer.Stop()
	}

	c.typing.active = true
	c.typing.conversationID = conversationID
	c.typing.receiverID = receiverID
	c.conn.Emit("typing", typingPayload{ConversationID: conversationID, ReceiverID: receiverID})
	c.typing.timer = time.AfterFunc(c.typingWindow, func() {
		c.StopTyping(conversationID, receiverID)
	})
}

// StopTyping notifies the counterpart that typing stopped. A no-op when
// no typing burst is active for the conversation.
func (c *Client) StopTyping(conversationID string, receiverID int) {
	c.typing.mu.Lock()
	defer c.typing.mu.Unlock()

	if !c.typing.active || c.typing.conversationID != conversationID {
		return
	}
	c.typing.timer.Stop()
	c.typing.active = false
	c.conn.Emit("stop_typing", typingPayload{ConversationID: conversationID, ReceiverID: receiverID})
}

// clearTypingTimer drops any pending auto-stop without emitting. Used
// when the conversation switches or the transport goes away.
func (c *Client) clearTypingTimer() {
	c.typing.mu.Lock()
	defer c.typing.mu.Unlock()
	if c.typing.timer != nil {
		c.typing.timer.Stop()
	}
	c.typing.active = false
}
