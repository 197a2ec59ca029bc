package models

import "time"

// Message is a stored chat message of one conversation. Deleted messages
// keep their row with body and file cleared.
type Message struct {
	ID             string
	ConversationID string
	ClientID       string
	SenderID       string
	Body           string
	FileURL        string
	FileName       string
	FileType       string
	FileSize       int64
	CreatedAt      time.Time
	Read           bool
	Deleted        bool
}

// Pin records whether a user pinned a conversation.
type Pin struct {
	UserID         string
	ConversationID string
	Pinned         bool
	UpdatedAt      time.Time
}
