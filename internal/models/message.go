package models

import "time"

// Attachment is an uploaded file referenced by a message.
type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// ReplyRef points at the message a reply was composed against.
type ReplyRef struct {
	MessageID int64  `json:"message_id"`
	Content   string `json:"content"`
}

// Message is a single chat message.
type Message struct {
	ID              int64        `json:"id"`
	ConversationID  string       `json:"conversation_id"`
	Sender          User         `json:"sender"`
	Receiver        User         `json:"receiver"`
	Content         string       `json:"content"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	ReplyTo         *ReplyRef    `json:"reply_to,omitempty"`
	TaskID          string       `json:"task_id,omitempty"`
	TaskTitle       string       `json:"task_title,omitempty"`
	TaskDescription string       `json:"task_description,omitempty"`
	IsRead          bool         `json:"is_read"`
	CreatedAt       time.Time    `json:"created_at"`
}

// DayGroup buckets messages under a calendar date or semantic label
// ("Older", "Yesterday", "Today") for rendering.
type DayGroup struct {
	Date     string    `json:"date"`
	Messages []Message `json:"messages"`
}

// FileUpload is a file received from the UI before it is validated and
// forwarded to the upload endpoint.
type FileUpload struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
}
