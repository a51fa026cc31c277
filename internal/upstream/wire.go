package upstream

import "encoding/json"

// Command is an outbound request or fire-and-forget emission.
type Command struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Ack is the single acknowledgement the server sends for a Command that
// carried a request id.
type Ack struct {
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Event is a server push frame.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// frame is the union of Ack and Event as read off the socket. A non-empty
// request id marks an acknowledgement, a non-empty type a push event.
type frame struct {
	Type      string          `json:"type,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type authenticatePayload struct {
	UserID         int    `json:"user_id"`
	OrganizationID string `json:"organization_id"`
}

type joinPayload struct {
	ConversationID string `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID   string             `json:"conversation_id"`
	SenderID         int                `json:"sender_id"`
	ReceiverID       int                `json:"receiver_id"`
	Content          string             `json:"content"`
	Attachments      []attachmentWire   `json:"attachments,omitempty"`
	TaskID           string             `json:"task_id,omitempty"`
	TaskTitle        string             `json:"task_title,omitempty"`
	TaskDescription  string             `json:"task_description,omitempty"`
	ReplyToMessageID int64              `json:"reply_to_message_id,omitempty"`
}

type attachmentWire struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type createConversationPayload struct {
	SenderID       int    `json:"sender_id"`
	ReceiverID     int    `json:"receiver_id"`
	InitialMessage string `json:"initial_message,omitempty"`
	TaskID         string `json:"task_id,omitempty"`
	TaskTitle      string `json:"task_title,omitempty"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	ReceiverID     int    `json:"receiver_id"`
}
