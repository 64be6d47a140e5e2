package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

type storedMessage struct {
	msg  domain.ChatMessage
	read bool
}

// ChatRepo stores messages in insertion order and joins names and avatars
// from users at read time.
type ChatRepo struct {
	mu       sync.RWMutex
	users    *UserRepo
	messages []storedMessage
}

func NewChatRepo(users *UserRepo) *ChatRepo {
	return &ChatRepo{users: users}
}

func (r *ChatRepo) CreateMessage(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, storedMessage{msg: *msg})
	return nil
}

func (r *ChatRepo) GetMessageByID(_ context.Context, id uuid.UUID) (*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.messages {
		if m.msg.ID != nil && *m.msg.ID == id {
			full := r.join(m)
			return &full, nil
		}
	}
	return nil, nil
}

func (r *ChatRepo) ListHistory(_ context.Context, user1ID, user2ID uuid.UUID) ([]domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ChatMessage
	for _, m := range r.messages {
		if m.msg.Involves(user1ID, user2ID) {
			out = append(out, r.join(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedDate.Before(*out[j].CreatedDate) })
	return out, nil
}

func (r *ChatRepo) ListConversations(_ context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byOther := make(map[uuid.UUID]*domain.Conversation)
	for _, m := range r.messages {
		var other uuid.UUID
		switch userID {
		case m.msg.SenderID:
			other = m.msg.ReceiverID
		case m.msg.ReceiverID:
			other = m.msg.SenderID
		default:
			continue
		}

		conv, ok := byOther[other]
		if !ok {
			conv = &domain.Conversation{UserID: other}
			if u, ok := r.users.lookup(other); ok {
				conv.UserName = u.DisplayName()
				if u.AvatarURL != nil {
					conv.UserAvatar = *u.AvatarURL
				}
			}
			byOther[other] = conv
		}
		if !m.msg.CreatedDate.Before(conv.LastMessageTime) {
			conv.LastMessage = m.msg.Content
			conv.LastMessageTime = *m.msg.CreatedDate
		}
		if m.msg.ReceiverID == userID && !m.read {
			conv.UnreadCount++
		}
	}

	out := make([]domain.Conversation, 0, len(byOther))
	for _, c := range byOther {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTime.After(out[j].LastMessageTime) })
	return out, nil
}

func (r *ChatRepo) MarkRead(_ context.Context, userID, fromUserID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.msg.ReceiverID == userID && m.msg.SenderID == fromUserID && !m.read {
			m.read = true
			n++
		}
	}
	return n, nil
}

func (r *ChatRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.messages {
		if m.msg.ReceiverID == userID && !m.read {
			n++
		}
	}
	return n, nil
}

func (r *ChatRepo) join(m storedMessage) domain.ChatMessage {
	msg := m.msg
	if u, ok := r.users.lookup(msg.SenderID); ok {
		msg.SenderName = u.DisplayName()
		if u.AvatarURL != nil {
			msg.SenderAvatar = *u.AvatarURL
		}
	}
	if u, ok := r.users.lookup(msg.ReceiverID); ok {
		msg.ReceiverName = u.DisplayName()
		if u.AvatarURL != nil {
			msg.ReceiverAvatar = *u.AvatarURL
		}
	}
	read := m.read
	msg.IsRead = &read
	return msg
}
