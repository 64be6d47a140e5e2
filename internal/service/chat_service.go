package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
	"github.com/vedran77/dealerchat/internal/repository"
)

var (
	ErrCannotMessageSelf = errors.New("cannot send a message to yourself")
	ErrUserNotFound      = errors.New("user not found")
	ErrReceiverNotFound  = errors.New("receiver not found")
	ErrForbidden         = errors.New("you can only access your own conversations")
	ErrMessageNotFound   = errors.New("message not found")
)

// Notifier pushes real-time events to connected clients.
type Notifier interface {
	NotifyNewMessage(msg *domain.ChatMessage)
}

type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	notifier Notifier
	now      func() time.Time
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		now:      time.Now,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SendMessage stores a draft sent by userID and pushes the stored message to
// the receiver. The returned message carries the server-assigned id and time.
func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, draft domain.ChatMessage) (*domain.ChatMessage, error) {
	if draft.SenderID != userID {
		return nil, ErrForbidden
	}
	if draft.ReceiverID == userID {
		return nil, ErrCannotMessageSelf
	}

	receiver, err := s.userRepo.GetByID(ctx, draft.ReceiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, ErrReceiverNotFound
	}

	id := uuid.New()
	created := s.now().UTC()
	msgType := draft.MessageType
	if msgType == 0 {
		msgType = domain.MessageTypeText
		if draft.FileURL != nil && *draft.FileURL != "" {
			msgType = domain.MessageTypeAttachment
		}
	}

	msg := &domain.ChatMessage{
		ID:          &id,
		SenderID:    userID,
		ReceiverID:  draft.ReceiverID,
		Content:     strings.TrimSpace(draft.Content),
		MessageType: msgType,
		FileURL:     draft.FileURL,
		CreatedDate: &created,
	}

	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating chat message: %w", err)
	}

	full, err := s.chatRepo.GetMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, ErrMessageNotFound
	}

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(full)
	}

	return full, nil
}

// History returns the full message history between two users. The caller
// must be one of them.
func (s *ChatService) History(ctx context.Context, userID, user1ID, user2ID uuid.UUID) ([]domain.ChatMessage, error) {
	if userID != user1ID && userID != user2ID {
		return nil, ErrForbidden
	}

	messages, err := s.chatRepo.ListHistory(ctx, user1ID, user2ID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return messages, nil
}

// ListConversations returns the counterpart summaries of forUserID.
func (s *ChatService) ListConversations(ctx context.Context, userID, forUserID uuid.UUID) ([]domain.Conversation, error) {
	if userID != forUserID {
		return nil, ErrForbidden
	}

	convs, err := s.chatRepo.ListConversations(ctx, forUserID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// MarkRead marks every message fromUserID sent to forUserID as read.
func (s *ChatService) MarkRead(ctx context.Context, userID, forUserID, fromUserID uuid.UUID) (int64, error) {
	if userID != forUserID {
		return 0, ErrForbidden
	}
	return s.chatRepo.MarkRead(ctx, forUserID, fromUserID)
}

func (s *ChatService) UnreadCount(ctx context.Context, userID, forUserID uuid.UUID) (int, error) {
	if userID != forUserID {
		return 0, ErrForbidden
	}
	return s.chatRepo.CountUnread(ctx, forUserID)
}
