package store

import (
	"sort"
	"time"

	"chat-bridge/internal/models"
)

const dateLabelLayout = "Jan 2, 2006"

// LoadGroups replaces the message log with freshly fetched, already grouped
// history for the given conversation and resets its unread count. The
// groups are ignored when the conversation is no longer selected: a late
// fetch for a deselected conversation must never clobber the visible log.
func (s *Store) LoadGroups(conversationID string, groups []models.DayGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.byID[conversationID]; ok {
		conv.UnreadCount = 0
	}
	if s.selectedID != conversationID {
		return
	}
	s.groups = groups
	s.sortGroupsLocked()
}

// AppendIncoming applies a message that arrived from the transport or from
// an acknowledged send. The owning conversation summary is always updated
// and moved to the top of the active list; the message itself is only
// appended to the log when its conversation is the selected one.
func (s *Store) AppendIncoming(msg models.Message, currentUserID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[msg.ConversationID]
	if !ok {
		conv = &models.Conversation{ID: msg.ConversationID, OtherUser: counterpart(msg, currentUserID)}
		s.byID[conv.ID] = conv
		s.active = append([]*models.Conversation{conv}, s.active...)
	}

	last := &models.LastMessage{Content: msg.Content, SenderID: msg.Sender.ID, CreatedAt: msg.CreatedAt}
	if newerLastMessage(conv.LastMessage, last) {
		conv.LastMessage = last
	}
	s.moveToTopLocked(conv.ID)

	if s.selectedID != msg.ConversationID {
		if msg.Sender.ID != currentUserID {
			conv.UnreadCount++
		}
		return
	}

	label := dayLabel(msg.CreatedAt, s.now())
	placed := false
	for i := range s.groups {
		if s.groups[i].Date == label {
			s.groups[i].Messages = append(s.groups[i].Messages, msg)
			placed = true
			break
		}
	}
	if !placed {
		s.groups = append(s.groups, models.DayGroup{Date: label, Messages: []models.Message{msg}})
	}
	s.sortGroupsLocked()
}

func counterpart(msg models.Message, currentUserID int) models.User {
	if msg.Sender.ID == currentUserID {
		return msg.Receiver
	}
	return msg.Sender
}

// DayGroups returns the selected conversation's log, deduplicated by
// message id (first occurrence wins) and sorted: groups in day order,
// messages within a group by creation time. Duplicates are expected — the
// same logical message can arrive once as the optimistic local insert and
// once as the server's broadcast echo.
func (s *Store) DayGroups() []models.DayGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	out := make([]models.DayGroup, 0, len(s.groups))
	for _, g := range s.groups {
		msgs := make([]models.Message, 0, len(g.Messages))
		for _, m := range g.Messages {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			msgs = append(msgs, m)
		}
		if len(msgs) == 0 {
			continue
		}
		sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
		out = append(out, models.DayGroup{Date: g.Date, Messages: msgs})
	}
	return out
}

// Flatten returns the deduplicated log as one chronological slice.
func (s *Store) Flatten() []models.Message {
	var out []models.Message
	for _, g := range s.DayGroups() {
		out = append(out, g.Messages...)
	}
	return out
}

func (s *Store) sortGroupsLocked() {
	now := s.now()
	sort.SliceStable(s.groups, func(i, j int) bool {
		return groupSortKey(s.groups[i].Date, now).Before(groupSortKey(s.groups[j].Date, now))
	})
}

// groupSortKey orders day labels: "Older" sorts before everything, date
// labels by their calendar date, then "Yesterday" and "Today".
func groupSortKey(label string, now time.Time) time.Time {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	switch label {
	case "Older":
		return time.Time{}
	case "Yesterday":
		return day(now.AddDate(0, 0, -1))
	case "Today":
		return day(now)
	}
	if t, err := time.ParseInLocation(dateLabelLayout, label, now.Location()); err == nil {
		return t
	}
	return time.Time{}
}

func dayLabel(t, now time.Time) string {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	}
	switch day(t) {
	case day(now):
		return "Today"
	case day(now.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return t.Format(dateLabelLayout)
}
