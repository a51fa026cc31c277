package store

import "chat-bridge/internal/models"

// Upsert inserts or refreshes a conversation summary. An existing summary
// never has its last message overwritten by an older one.
func (s *Store) Upsert(conv models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(conv)
}

func (s *Store) upsertLocked(conv models.Conversation) {
	existing, ok := s.byID[conv.ID]
	if !ok {
		c := conv
		s.byID[c.ID] = &c
		if c.IsArchived {
			s.archived = append(s.archived, &c)
		} else {
			s.active = append([]*models.Conversation{&c}, s.active...)
		}
		return
	}

	existing.OtherUser = conv.OtherUser
	if conv.Task != nil {
		existing.Task = conv.Task
	}
	if newerLastMessage(existing.LastMessage, conv.LastMessage) {
		existing.LastMessage = conv.LastMessage
	}
	existing.UnreadCount = conv.UnreadCount
}

func newerLastMessage(current, incoming *models.LastMessage) bool {
	if incoming == nil {
		return false
	}
	if current == nil {
		return true
	}
	return incoming.CreatedAt.After(current.CreatedAt)
}

// Conversation returns a copy of the summary for id.
func (s *Store) Conversation(id string) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.byID[id]
	if !ok {
		return models.Conversation{}, false
	}
	return *conv, true
}

// Active returns the active conversations in recency order.
func (s *Store) Active() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConversations(s.active)
}

// Archived returns the archived partition.
func (s *Store) Archived() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConversations(s.archived)
}

func copyConversations(list []*models.Conversation) []models.Conversation {
	out := make([]models.Conversation, 0, len(list))
	for _, c := range list {
		out = append(out, *c)
	}
	return out
}

// MergeByCounterpart groups active conversations that share a counterpart
// (one general thread plus one per task is common) into a single sidebar
// entry: the most recently active sibling is the representative, unread
// counts are summed, and a task link is taken from any sibling when the
// representative has none.
func (s *Store) MergeByCounterpart() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make([]models.Conversation, 0, len(s.active))
	index := make(map[int]int)

	for _, c := range s.active {
		pos, seen := index[c.OtherUser.ID]
		if !seen {
			index[c.OtherUser.ID] = len(merged)
			merged = append(merged, *c)
			continue
		}

		rep := &merged[pos]
		rep.UnreadCount += c.UnreadCount
		if newerLastMessage(rep.LastMessage, c.LastMessage) {
			rep.LastMessage = c.LastMessage
			rep.ID = c.ID
		}
		if rep.Task == nil && c.Task != nil {
			rep.Task = c.Task
		}
	}
	return merged
}

// MoveToTop relocates a conversation to the front of the active list.
func (s *Store) MoveToTop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveToTopLocked(id)
}

func (s *Store) moveToTopLocked(id string) {
	for i, c := range s.active {
		if c.ID == id {
			if i == 0 {
				return
			}
			s.active = append(s.active[:i], s.active[i+1:]...)
			s.active = append([]*models.Conversation{c}, s.active...)
			return
		}
	}
}

// Archive moves a conversation to the archived partition. Archiving the
// selected conversation clears the selection and its message log.
func (s *Store) Archive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.active {
		if c.ID != id {
			continue
		}
		s.active = append(s.active[:i], s.active[i+1:]...)
		c.IsArchived = true
		s.archived = append(s.archived, c)
		break
	}

	if s.selectedID == id {
		s.selectedID = ""
		s.groups = nil
		s.typing = make(map[int]models.TypingUser)
	}
}

// Unarchive moves a conversation back to the front of the active list.
func (s *Store) Unarchive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.archived {
		if c.ID != id {
			continue
		}
		s.archived = append(s.archived[:i], s.archived[i+1:]...)
		c.IsArchived = false
		s.active = append([]*models.Conversation{c}, s.active...)
		return
	}
}

// ReplaceConversations resets both partitions from a freshly fetched list,
// preserving its order. Used on startup and after a REST refresh.
func (s *Store) ReplaceConversations(convs []models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = nil
	s.archived = nil
	s.byID = make(map[string]*models.Conversation)
	for i := range convs {
		c := convs[i]
		s.byID[c.ID] = &c
		if c.IsArchived {
			s.archived = append(s.archived, &c)
		} else {
			s.active = append(s.active, &c)
		}
	}
}
