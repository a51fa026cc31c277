package store

import (
	"sync"
	"time"

	"chat-bridge/internal/models"
)

// Store is the client-side chat state: conversation summaries, the selected
// conversation's message log, presence/typing, the pending reply target and
// pinned messages. Every mutation goes through one of the methods below and
// is serialized behind a single mutex, so no two updates interleave no
// matter whether they originate from the UI facade or the upstream read
// loop.
type Store struct {
	mu sync.RWMutex

	active   []*models.Conversation // recency ordered, most recent first
	archived []*models.Conversation
	byID     map[string]*models.Conversation

	selectedID string
	groups     []models.DayGroup // message log of the selected conversation

	online map[int]struct{}
	typing map[int]models.TypingUser

	reply *models.ReplyTarget
	pins  []models.PinnedMessage

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:   make(map[string]*models.Conversation),
		online: make(map[int]struct{}),
		typing: make(map[int]models.TypingUser),
		now:    time.Now,
	}
}

// SelectedID returns the id of the selected conversation, or "".
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Select marks a conversation as the one being viewed. Typing state is
// scoped to the selection and always cleared on a switch, and the previous
// message log is dropped so stale messages never leak across conversations.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedID != id {
		s.groups = nil
	}
	s.selectedID = id
	s.typing = make(map[int]models.TypingUser)
}

// ClearSelection drops the selection and its message log.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = ""
	s.groups = nil
	s.typing = make(map[int]models.TypingUser)
}
