package store

import (
	"sort"

	"chat-bridge/internal/models"
)

// SetOnline records a user as online. Idempotent.
func (s *Store) SetOnline(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[userID] = struct{}{}
}

// SetOffline removes a user from the online set. Idempotent.
func (s *Store) SetOffline(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.online, userID)
}

// IsOnline reports whether a user is currently online.
func (s *Store) IsOnline(userID int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[userID]
	return ok
}

// OnlineUsers returns the online user ids in ascending order.
func (s *Store) OnlineUsers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// ResetPresence drops all presence and typing state. Called on disconnect:
// the transport is the sole source of truth and the sets are rebuilt from
// push events after a reconnect.
func (s *Store) ResetPresence() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = make(map[int]struct{})
	s.typing = make(map[int]models.TypingUser)
}

// SetTyping records a typer, but only for the selected conversation.
// Indicators for background conversations are dropped so they can never go
// stale on screen.
func (s *Store) SetTyping(userID int, name, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID == "" || conversationID != s.selectedID {
		return
	}
	s.typing[userID] = models.TypingUser{UserID: userID, Name: name}
}

// ClearTyping removes a typer, with the same selection scoping as SetTyping.
func (s *Store) ClearTyping(userID int, conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID != s.selectedID {
		return
	}
	delete(s.typing, userID)
}

// TypingUsers returns the typers of the selected conversation.
func (s *Store) TypingUsers() []models.TypingUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TypingUser, 0, len(s.typing))
	for _, tu := range s.typing {
		out = append(out, tu)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
