package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *domain.ChatMessage) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.ChatMessage, error)
	// ListHistory returns every message exchanged between the two users, oldest first.
	ListHistory(ctx context.Context, user1ID, user2ID uuid.UUID) ([]domain.ChatMessage, error)
	// ListConversations returns one summary per counterpart of userID, newest first.
	ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	// MarkRead flags every unread message from fromUserID to userID as read
	// and returns how many rows changed.
	MarkRead(ctx context.Context, userID, fromUserID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
