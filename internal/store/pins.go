package store

import (
	"github.com/pborman/uuid"

	"chat-bridge/internal/models"
)

// SetReply sets the pending reply target. There is never more than one.
func (s *Store) SetReply(target models.ReplyTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := target
	s.reply = &t
}

// ClearReply drops the pending reply target. Called after a successful send
// or an explicit cancel.
func (s *Store) ClearReply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = nil
}

// Reply returns the pending reply target, if any.
func (s *Store) Reply() (models.ReplyTarget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reply == nil {
		return models.ReplyTarget{}, false
	}
	return *s.reply, true
}

// Pin records a pinned message. Pinning an already-pinned message is a
// no-op; the list is deduplicated by the underlying message id.
func (s *Store) Pin(msg models.Message) models.PinnedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pins {
		if p.MessageID == msg.ID {
			return p
		}
	}
	pin := models.PinnedMessage{
		ID:             uuid.New(),
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		Sender:         msg.Sender,
		PinnedAt:       s.now(),
	}
	s.pins = append(s.pins, pin)
	return pin
}

// Unpin removes the pin for a message id, if present.
func (s *Store) Unpin(messageID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pins {
		if p.MessageID == messageID {
			s.pins = append(s.pins[:i], s.pins[i+1:]...)
			return
		}
	}
}

// Pins returns the pinned messages for one conversation, or all of them
// when conversationID is empty.
func (s *Store) Pins(conversationID string) []models.PinnedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PinnedMessage, 0, len(s.pins))
	for _, p := range s.pins {
		if conversationID == "" || p.ConversationID == conversationID {
			out = append(out, p)
		}
	}
	return out
}

// ReplacePins resets the pin list from a cache snapshot.
func (s *Store) ReplacePins(pins []models.PinnedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins = append([]models.PinnedMessage(nil), pins...)
}
