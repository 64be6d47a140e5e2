package handlers

import "net/http"

// Register mounts the REST API on mux. auth wraps the protected routes.
func Register(mux *http.ServeMux, auth func(http.Handler) http.Handler, authHandler *AuthHandler, chatHandler *ChatHandler) {
	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/register/user", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)

	// Protected - Profile
	mux.Handle("GET /api/v1/profile", auth(http.HandlerFunc(authHandler.Profile)))

	// Protected - Chat
	mux.Handle("POST /api/v1/web-socket/send", auth(http.HandlerFunc(chatHandler.SendMessage)))
	mux.Handle("GET /api/v1/web-socket/history", auth(http.HandlerFunc(chatHandler.History)))
	mux.Handle("GET /api/v1/web-socket/conversations", auth(http.HandlerFunc(chatHandler.ListConversations)))
	mux.Handle("POST /api/v1/web-socket/mark-read", auth(http.HandlerFunc(chatHandler.MarkRead)))
	mux.Handle("GET /api/v1/web-socket/unread-count", auth(http.HandlerFunc(chatHandler.UnreadCount)))
	mux.Handle("GET /api/v1/web-socket/attachment-signature", auth(http.HandlerFunc(chatHandler.AttachmentSignature)))
}
