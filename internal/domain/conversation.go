package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation summarizes a two-party thread from the point of view of one
// participant. UserID is the counterpart.
type Conversation struct {
	UserID          uuid.UUID `json:"userId"`
	UserName        string    `json:"userName"`
	UserAvatar      string    `json:"userAvatar"`
	LastMessage     string    `json:"lastMessage"`
	UnreadCount     int       `json:"unreadCount"`
	LastMessageTime time.Time `json:"lastMessageTime"`
}
