package wire

import (
	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
)

// NewMessage is broadcast when the server stores a message. ClientID echoes
// the sender's provisional id when the server received one.
type NewMessage struct {
	ID        string `json:"id"`
	ClientID  string `json:"clientId,omitempty"`
	SenderID  string `json:"senderId"`
	Body      string `json:"body,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	FileType  string `json:"fileType,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
	Timestamp Time   `json:"timestamp"`
}

func (p *NewMessage) Validate() error {
	ve := &ValidationError{}
	if p.ID == "" {
		ve.add("id", "required")
	}
	if p.SenderID == "" {
		ve.add("senderId", "required")
	}
	if p.Body == "" && p.FileURL == "" {
		ve.add("body/fileUrl", "one of body or fileUrl is required")
	}
	if p.Timestamp.IsZero() {
		ve.add("timestamp", "required")
	}
	return ve.orNil()
}

// Message converts the payload to a confirmed model message.
func (p *NewMessage) Message() models.Message {
	m := models.Message{
		ID:        p.ID,
		ClientID:  p.ClientID,
		SenderID:  p.SenderID,
		Body:      p.Body,
		Timestamp: p.Timestamp.Time,
		Status:    models.StatusConfirmed,
	}
	if p.FileURL != "" {
		m.File = models.NewFileRef(p.FileURL, p.FileName, p.FileType, p.FileSize)
	}
	return m
}

// NewMessageFrom is the inverse of Message.
func NewMessageFrom(m models.Message) NewMessage {
	p := NewMessage{
		ID:        m.ID,
		ClientID:  m.ClientID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		Timestamp: Time{m.Timestamp},
	}
	if m.File != nil {
		p.FileURL = m.File.URL
		p.FileName = m.File.Name
		p.FileType = m.File.MIMEType
		p.FileSize = m.File.Size
	}
	return p
}

// SendMessage is the outbound request for a new message.
type SendMessage struct {
	ClientID  string `json:"clientId"`
	Body      string `json:"body,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	FileType  string `json:"fileType,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
	Timestamp Time   `json:"timestamp"`
}

func (p *SendMessage) Validate() error {
	ve := &ValidationError{}
	if p.ClientID == "" {
		ve.add("clientId", "required")
	}
	if p.Body == "" && p.FileURL == "" {
		ve.add("body/fileUrl", "one of body or fileUrl is required")
	}
	return ve.orNil()
}

// SendMessageFrom builds the request for a locally appended message.
func SendMessageFrom(m models.Message) SendMessage {
	p := SendMessage{ClientID: m.ClientID, Body: m.Body, Timestamp: Time{m.Timestamp}}
	if m.File != nil {
		p.FileURL = m.File.URL
		p.FileName = m.File.Name
		p.FileType = m.File.MIMEType
		p.FileSize = m.File.Size
	}
	return p
}

// MessageRef addresses a message by server id. It is the payload of
// message_deleted, message_read, delete_message and mark_read.
type MessageRef struct {
	ID string `json:"id"`
}

func (p *MessageRef) Validate() error {
	ve := &ValidationError{}
	if p.ID == "" {
		ve.add("id", "required")
	}
	return ve.orNil()
}

// PinState is the payload of set_pin and pin_changed.
type PinState struct {
	Pinned bool `json:"pinned"`
}
