package ws

import (
	"encoding/json"
	"log"

	"github.com/vedran77/dealerchat/internal/domain"
)

// HubNotifier implements service.Notifier using the local Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyNewMessage pushes the stored message, as a bare JSON frame, to the receiver.
func (n *HubNotifier) NotifyNewMessage(msg *domain.ChatMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.DeliverToUser(msg.ReceiverID, data)
}
