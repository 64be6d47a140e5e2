package chatclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

// HistorySource loads the messages between two users.
type HistorySource interface {
	History(ctx context.Context, userID1, userID2 uuid.UUID) ([]domain.ChatMessage, error)
}

// Transcript is the message list of the open conversation. Switching
// counterpart starts a new generation; a history response for an older
// generation is discarded.
type Transcript struct {
	mu          sync.RWMutex
	gen         uint64
	counterpart uuid.UUID
	messages    []domain.ChatMessage
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Begin switches to counterpartID, clears the messages and returns the new
// generation.
func (t *Transcript) Begin(counterpartID uuid.UUID) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.counterpart = counterpartID
	t.messages = nil
	return t.gen
}

// Apply replaces the messages if gen is still current.
func (t *Transcript) Apply(gen uint64, messages []domain.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return false
	}
	t.messages = make([]domain.ChatMessage, len(messages))
	copy(t.messages, messages)
	return true
}

// Load begins a generation for counterpartID and fills it from src.
func (t *Transcript) Load(ctx context.Context, src HistorySource, userID, counterpartID uuid.UUID) (bool, error) {
	gen := t.Begin(counterpartID)

	messages, err := src.History(ctx, userID, counterpartID)
	if err != nil {
		return false, err
	}
	return t.Apply(gen, messages), nil
}

// Append adds msg at the end. A message whose id is already present is
// ignored.
func (t *Transcript) Append(msg domain.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.ID != nil {
		for _, m := range t.messages {
			if m.ID != nil && *m.ID == *msg.ID {
				return false
			}
		}
	}
	t.messages = append(t.messages, msg)
	return true
}

func (t *Transcript) Counterpart() uuid.UUID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counterpart
}

func (t *Transcript) Messages() []domain.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}
