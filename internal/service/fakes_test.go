package service

import (
	"sync"

	"github.com/vedran77/dealerchat/internal/domain"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*domain.ChatMessage
}

func (n *recordingNotifier) NotifyNewMessage(msg *domain.ChatMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}
