package models

import "time"

// User identifies a chat participant.
type User struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// TaskRef links a conversation or message to an external task entity.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// LastMessage is the denormalized preview kept on a conversation summary.
type LastMessage struct {
	Content   string    `json:"content"`
	SenderID  int       `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a thread between the current user and one counterpart,
// optionally scoped to a task.
type Conversation struct {
	ID          string       `json:"id"`
	OtherUser   User         `json:"other_user"`
	Task        *TaskRef     `json:"task,omitempty"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
	IsArchived  bool         `json:"is_archived"`
}

// TypingUser is a counterpart currently composing a message in the
// selected conversation.
type TypingUser struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
}

// ReplyTarget is the single pending reply context on the composer.
type ReplyTarget struct {
	MessageID int64  `json:"message_id"`
	Content   string `json:"content"`
	Sender    User   `json:"sender"`
}

// PinnedMessage is a locally pinned message record.
type PinnedMessage struct {
	ID             string    `json:"id"`
	MessageID      int64     `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Sender         User      `json:"sender"`
	PinnedAt       time.Time `json:"pinned_at"`
}
