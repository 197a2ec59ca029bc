// Package models defines the client-side chat data model: messages, file
// references, pending uploads and the connection state of a conversation.
package models

import (
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/common"
)

// Status is the delivery state of a message as seen by this client.
type Status string

const (
	// StatusPending: appended locally, not yet acknowledged by the server.
	StatusPending Status = "pending"
	// StatusConfirmed: carries a server-assigned id.
	StatusConfirmed Status = "confirmed"
	// StatusFailed: the server rejected the send. Only Retry or Discard
	// move a message out of this state.
	StatusFailed Status = "failed"
)

// Message is one chat entry of a conversation.
type Message struct {
	// ID is the server id once confirmed; empty while pending.
	ID string
	// ClientID is the provisional id assigned on append. It is kept after
	// confirmation so late acknowledgments can still be matched.
	ClientID string

	SenderID  string
	Body      string
	File      *FileRef
	Timestamp time.Time

	Read    bool
	Deleted bool
	Status  Status

	// FailureReason is set together with StatusFailed.
	FailureReason string
}

// Key returns the identifier callers use to address the message: the
// server id when known, otherwise the provisional id.
func (m Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return m.ClientID
}

// IsOwn reports whether userID authored the message.
func (m Message) IsOwn(userID string) bool {
	return m.SenderID != "" && m.SenderID == userID
}

// HasContent reports whether the message has a body or a file to render.
func (m Message) HasContent() bool {
	return m.Body != "" || (m.File != nil && m.File.URL != "")
}

// View is the render-ready projection of a message.
type View struct {
	Key       string
	SenderID  string
	Text      string
	File      *FileRef
	Timestamp time.Time
	Read      bool
	Deleted   bool
	Status    Status
}

// Display projects m for rendering. A deleted message shows the deletion
// marker and no attachment, regardless of what its body contains.
func (m Message) Display() View {
	v := View{
		Key:       m.Key(),
		SenderID:  m.SenderID,
		Text:      m.Body,
		File:      m.File,
		Timestamp: m.Timestamp,
		Read:      m.Read,
		Deleted:   m.Deleted,
		Status:    m.Status,
	}
	if m.Deleted {
		v.Text = common.DeletedMarker
		v.File = nil
	}
	return v
}

// Draft is the user input for a new outgoing message.
type Draft struct {
	Body string
	File *FileRef
}

// Empty reports whether the draft has nothing to send.
func (d Draft) Empty() bool {
	return d.Body == "" && (d.File == nil || d.File.URL == "")
}
