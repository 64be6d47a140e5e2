package ws

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Hub tracks every open WebSocket per user and pushes frames to them.
// A user may hold several connections (tabs, devices).
type Hub struct {
	clients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery
	online     chan onlineQuery
	stopped    chan struct{}
}

type delivery struct {
	userID uuid.UUID
	data   []byte
}

type onlineQuery struct {
	userID uuid.UUID
	reply  chan int
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan *delivery, 256),
		online:     make(chan onlineQuery),
		stopped:    make(chan struct{}),
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			for _, set := range h.clients {
				for client := range set {
					h.drop(client)
				}
			}
			return

		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			log.Printf("ws hub: user %s connected (%d sessions)", client.userID, len(set))

		case client := <-h.unregister:
			if _, ok := h.clients[client.userID][client]; ok {
				h.drop(client)
				log.Printf("ws hub: user %s disconnected", client.userID)
			}

		case d := <-h.deliver:
			for client := range h.clients[d.userID] {
				select {
				case client.send <- d.data:
				default:
					// Client buffer full - disconnect
					log.Printf("ws hub: dropping slow client of user %s", d.userID)
					h.drop(client)
				}
			}

		case q := <-h.online:
			q.reply <- len(h.clients[q.userID])
		}
	}
}

// DeliverToUser queues a frame for every connection of userID. Users
// without an open connection simply miss it; history is the source of truth.
func (h *Hub) DeliverToUser(userID uuid.UUID, data []byte) {
	select {
	case h.deliver <- &delivery{userID: userID, data: data}:
	case <-h.stopped:
	}
}

// Sessions returns how many connections userID currently holds.
func (h *Hub) Sessions(userID uuid.UUID) int {
	reply := make(chan int, 1)
	select {
	case h.online <- onlineQuery{userID: userID, reply: reply}:
		return <-reply
	case <-h.stopped:
		return 0
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

func (h *Hub) drop(client *Client) {
	set := h.clients[client.userID]
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	close(client.done)
}
