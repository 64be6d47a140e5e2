package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/vedran77/dealerchat/internal/domain"
	"github.com/vedran77/dealerchat/internal/service"
	"github.com/vedran77/dealerchat/internal/transport/http/middleware"
	"github.com/vedran77/dealerchat/pkg/validator"
)

type ChatHandler struct {
	chatService       *service.ChatService
	attachmentService *service.AttachmentService
}

func NewChatHandler(chatService *service.ChatService, attachmentService *service.AttachmentService) *ChatHandler {
	return &ChatHandler{chatService: chatService, attachmentService: attachmentService}
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var draft domain.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := validator.ValidateMessage(draft.SenderID, draft.ReceiverID, draft.Content); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), userID, draft)
	if err != nil {
		h.writeServiceError(w, "send message", err)
		return
	}

	writeOK(w, http.StatusCreated, msg, "Message sent")
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user1, err := queryUUID(r, "userId1")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user2, err := queryUUID(r, "userId2")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.chatService.History(r.Context(), userID, user1, user2)
	if err != nil {
		h.writeServiceError(w, "chat history", err)
		return
	}

	writeOK(w, http.StatusOK, messages, "")
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	forUser, err := queryUUID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	convs, err := h.chatService.ListConversations(r.Context(), userID, forUser)
	if err != nil {
		h.writeServiceError(w, "list conversations", err)
		return
	}

	writeOK(w, http.StatusOK, convs, "")
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	forUser, err := queryUUID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fromUser, err := queryUUID(r, "fromUserId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.chatService.MarkRead(r.Context(), userID, forUser, fromUser); err != nil {
		h.writeServiceError(w, "mark read", err)
		return
	}

	writeOK[any](w, http.StatusOK, nil, "Marked as read")
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	forUser, err := queryUUID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.chatService.UnreadCount(r.Context(), userID, forUser)
	if err != nil {
		h.writeServiceError(w, "unread count", err)
		return
	}

	writeOK(w, http.StatusOK, count, "")
}

func (h *ChatHandler) AttachmentSignature(w http.ResponseWriter, r *http.Request) {
	sig, err := h.attachmentService.Sign()
	if err != nil {
		if errors.Is(err, service.ErrAttachmentsDisabled) {
			writeError(w, http.StatusServiceUnavailable, "Attachments are not available")
		} else {
			log.Printf("ERROR attachment signature: %v", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	writeOK(w, http.StatusOK, sig, "")
}

func (h *ChatHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "You can only access your own conversations")
	case errors.Is(err, service.ErrCannotMessageSelf):
		writeError(w, http.StatusBadRequest, "Cannot send a message to yourself")
	case errors.Is(err, service.ErrReceiverNotFound):
		writeError(w, http.StatusNotFound, "Receiver not found")
	default:
		log.Printf("ERROR %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
