package chatclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

// ConversationSource is the part of the API the conversation list needs.
type ConversationSource interface {
	Conversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	MarkRead(ctx context.Context, userID, fromUserID uuid.UUID) error
}

// ConversationCache holds the latest conversation list. Each Reload takes a
// generation number and only the newest requested generation may replace
// the list, so an older response finishing late is discarded.
//
// A successful MarkRead zeroes the counterpart's unread count and keeps it
// at zero against any reload that was already in flight when the mark
// completed.
type ConversationCache struct {
	src ConversationSource

	mu        sync.RWMutex
	items     []domain.Conversation
	issued    uint64
	readMarks map[uuid.UUID]uint64
}

func NewConversationCache(src ConversationSource) *ConversationCache {
	return &ConversationCache{src: src, readMarks: make(map[uuid.UUID]uint64)}
}

// Reload fetches the list for userID. It reports whether the result was
// applied; a superseded result is dropped without error.
func (c *ConversationCache) Reload(ctx context.Context, userID uuid.UUID) (bool, error) {
	c.mu.Lock()
	c.issued++
	gen := c.issued
	c.mu.Unlock()

	items, err := c.src.Conversations(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.apply(gen, items), nil
}

func (c *ConversationCache) apply(gen uint64, items []domain.Conversation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.issued {
		return false
	}

	list := make([]domain.Conversation, len(items))
	copy(list, items)
	for id, mark := range c.readMarks {
		if gen > mark {
			delete(c.readMarks, id)
			continue
		}
		for i := range list {
			if list[i].UserID == id {
				list[i].UnreadCount = 0
			}
		}
	}
	c.items = list
	return true
}

// MarkRead marks counterpartID's messages to userID as read on the server,
// then zeroes the cached unread count.
func (c *ConversationCache) MarkRead(ctx context.Context, userID, counterpartID uuid.UUID) error {
	if err := c.src.MarkRead(ctx, userID, counterpartID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].UserID == counterpartID {
			c.items[i].UnreadCount = 0
		}
	}
	c.readMarks[counterpartID] = c.issued
	return nil
}

func (c *ConversationCache) Snapshot() []domain.Conversation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Conversation, len(c.items))
	copy(out, c.items)
	return out
}

func (c *ConversationCache) Find(counterpartID uuid.UUID) (domain.Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, conv := range c.items {
		if conv.UserID == counterpartID {
			return conv, true
		}
	}
	return domain.Conversation{}, false
}

// TotalUnread sums the cached unread counts.
func (c *ConversationCache) TotalUnread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, conv := range c.items {
		total += conv.UnreadCount
	}
	return total
}
