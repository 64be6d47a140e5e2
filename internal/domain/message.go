package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message type codes.
const (
	MessageTypeText       = 1
	MessageTypeAttachment = 2
)

// ChatMessage is one direct message between two users. A draft has no ID
// and no CreatedDate; both are assigned by the server.
type ChatMessage struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	SenderID       uuid.UUID  `json:"senderId"`
	SenderName     string     `json:"senderName,omitempty"`
	SenderAvatar   string     `json:"senderAvatar,omitempty"`
	ReceiverID     uuid.UUID  `json:"receiverId"`
	ReceiverName   string     `json:"receiverName,omitempty"`
	ReceiverAvatar string     `json:"receiverAvatar,omitempty"`
	Content        string     `json:"content"`
	MessageType    int        `json:"messageType"`
	IsRead         *bool      `json:"isRead,omitempty"`
	FileURL        *string    `json:"fileUrl,omitempty"`
	CreatedDate    *time.Time `json:"createdDate,omitempty"`
}

// IsDraft reports whether the message has not been acknowledged by the server yet.
func (m *ChatMessage) IsDraft() bool {
	return m.ID == nil || m.CreatedDate == nil
}

// Involves reports whether the message was exchanged between a and b, in either direction.
func (m *ChatMessage) Involves(a, b uuid.UUID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
