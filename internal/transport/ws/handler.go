package ws

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/service"
	"nhooyr.io/websocket"
)

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// The connection is addressed by ?userId=xxx and authenticated by
// ?token=xxx (WebSocket can't send headers); both must name the same user.
func ServeWS(hub *Hub, jwtSecret string, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("userId"))
		if err != nil {
			http.Error(w, "missing or invalid userId", http.StatusBadRequest)
			return
		}

		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		subject, err := service.ParseToken(tokenStr, jwtSecret, service.TokenTypeAccess)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		if subject != userID {
			http.Error(w, "token does not match userId", http.StatusForbidden)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			log.Printf("ws: accept error: %v", err)
			return
		}

		client := NewClient(hub, conn, userID)
		select {
		case hub.register <- client:
		case <-hub.stopped:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		// Start read/write pumps in goroutines
		go client.WritePump()
		go client.ReadPump()
	}
}
