package models

// TypingEvent announces that a counterpart started or stopped composing.
type TypingEvent struct {
	UserID         int    `json:"user_id"`
	Name           string `json:"name"`
	ConversationID string `json:"conversation_id"`
}

// PresenceEvent announces that a user came online or went offline.
type PresenceEvent struct {
	UserID int `json:"user_id"`
}

// NewConversationEvent announces a conversation created by a counterpart.
type NewConversationEvent struct {
	ConversationID string   `json:"conversation_id"`
	Sender         User     `json:"sender"`
	Receiver       User     `json:"receiver"`
	Task           *TaskRef `json:"task,omitempty"`
}
