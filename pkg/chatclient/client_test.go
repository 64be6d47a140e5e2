package chatclient

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/dealerchat/internal/domain"
)

var quietLogger = log.New(io.Discard, "", 0)

func writeEnvelope[T any](w http.ResponseWriter, status int, data T, success bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.APIResponse[T]{Data: data, Success: success, Code: status, Message: message})
}

func newTestClient(t *testing.T, h http.Handler, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithLogger(quietLogger)}, opts...)
	return NewClient(srv.URL+"/api/v1/", opts...)
}

func TestSendMessageRejectsInvalidDraftLocally(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	me := uuid.New()
	drafts := map[string]domain.ChatMessage{
		"no sender":   {ReceiverID: uuid.New(), Content: "hi"},
		"no receiver": {SenderID: me, Content: "hi"},
		"no content":  {SenderID: me, ReceiverID: uuid.New(), Content: "   "},
		"to self":     {SenderID: me, ReceiverID: me, Content: "hi"},
	}

	for name, draft := range drafts {
		t.Run(name, func(t *testing.T) {
			msg, err := client.SendMessage(context.Background(), draft)
			assert.Nil(t, msg)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.Fields.HasErrors())
		})
	}
	assert.Zero(t, hits.Load())
}

func TestSendMessageReturnsStoredMessage(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	var hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/web-socket/send", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var draft domain.ChatMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		assert.True(t, draft.IsDraft())

		id := uuid.New()
		now := time.Now().UTC()
		draft.ID, draft.CreatedDate = &id, &now
		writeEnvelope(w, http.StatusCreated, draft, true, "Message sent")
	})

	client := newTestClient(t, mux, WithSession(StaticSession(Session{AccessToken: "tok"})))
	msg, err := client.SendMessage(context.Background(), domain.ChatMessage{
		SenderID: me, ReceiverID: them, Content: "hello", MessageType: domain.MessageTypeText,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, msg.IsDraft())
	assert.Equal(t, "hello", msg.Content)
}

func TestQueriesCarryUserIDs(t *testing.T) {
	me, them := uuid.New(), uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/web-socket/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, me.String(), r.URL.Query().Get("userId1"))
		assert.Equal(t, them.String(), r.URL.Query().Get("userId2"))
		writeEnvelope(w, http.StatusOK, []domain.ChatMessage{{SenderID: them, ReceiverID: me, Content: "a", MessageType: 1}}, true, "")
	})
	mux.HandleFunc("GET /api/v1/web-socket/conversations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, me.String(), r.URL.Query().Get("userId"))
		writeEnvelope(w, http.StatusOK, []domain.Conversation{{UserID: them, UnreadCount: 2}}, true, "")
	})
	mux.HandleFunc("POST /api/v1/web-socket/mark-read", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, me.String(), r.URL.Query().Get("userId"))
		assert.Equal(t, them.String(), r.URL.Query().Get("fromUserId"))
		writeEnvelope[any](w, http.StatusOK, nil, true, "Marked as read")
	})
	mux.HandleFunc("GET /api/v1/web-socket/unread-count", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 4, true, "")
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	history, err := client.History(ctx, me, them)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	convs, err := client.Conversations(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 2, convs[0].UnreadCount)

	require.NoError(t, client.MarkRead(ctx, me, them))

	n, err := client.UnreadCount(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUnauthorized(t *testing.T) {
	var loggedOut atomic.Bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope[any](w, http.StatusUnauthorized, nil, false, "Invalid token")
	}), OnUnauthorized(func() { loggedOut.Store(true) }))

	_, err := client.Profile(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid token", apiErr.Message)
	assert.True(t, loggedOut.Load())
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, 0, false, "Not allowed")
	}))

	_, err := client.UnreadCount(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Not allowed", apiErr.Message)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLoginValidatesLocally(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := client.Login(context.Background(), "", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Zero(t, hits.Load())
}
