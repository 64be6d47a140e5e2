package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/dealerchat/internal/domain"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const testSecret = "ws-secret"

func accessToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"typ": "access",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(ServeWS(hub, testSecret, nil))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server, userID uuid.UUID, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "?userId=" + userID.String()
	if token != "" {
		u += "&token=" + token
	}
	return u
}

func TestNotifierPushesToReceiver(t *testing.T) {
	hub, srv := startHub(t)
	receiver := uuid.New()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, receiver, accessToken(t, receiver)), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return hub.Sessions(receiver) == 1 }, 2*time.Second, 10*time.Millisecond)

	id := uuid.New()
	now := time.Now().UTC()
	msg := &domain.ChatMessage{ID: &id, SenderID: uuid.New(), ReceiverID: receiver, Content: "Hi", MessageType: 1, CreatedDate: &now}
	NewHubNotifier(hub).NotifyNewMessage(msg)

	var got domain.ChatMessage
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, id, *got.ID)
	assert.Equal(t, "Hi", got.Content)
}

func TestNotifierSkipsOfflineUsers(t *testing.T) {
	hub, _ := startHub(t)
	offline := uuid.New()

	NewHubNotifier(hub).NotifyNewMessage(&domain.ChatMessage{SenderID: uuid.New(), ReceiverID: offline, Content: "x"})
	assert.Zero(t, hub.Sessions(offline))
}

func TestServeWSRejects(t *testing.T) {
	_, srv := startHub(t)
	user := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv, user, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, wsURL(srv, user, accessToken(t, uuid.New())), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"?userId=nope", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
