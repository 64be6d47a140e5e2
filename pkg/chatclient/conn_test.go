package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/dealerchat/internal/domain"
	"nhooyr.io/websocket"
)

// pushServer accepts duplex connections and hands them to the test.
type pushServer struct {
	srv      *httptest.Server
	attempts atomic.Int32
	accepts  atomic.Int32
	reject   atomic.Bool
	conns   chan *websocket.Conn
	queries chan url.Values
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	s := &pushServer{
		conns:   make(chan *websocket.Conn, 8),
		queries: make(chan url.Values, 8),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.attempts.Add(1)
		if s.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		s.accepts.Add(1)
		s.queries <- r.URL.Query()
		s.conns <- c

		ctx := c.CloseRead(context.Background())
		<-ctx.Done()
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *pushServer) endpoint() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/web-socket/chat"
}

func (s *pushServer) next(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func newTestConn(t *testing.T, endpoint string, opts ...ConnOption) *Conn {
	t.Helper()
	opts = append([]ConnOption{WithConnLogger(quietLogger)}, opts...)
	c := NewConn(endpoint, opts...)
	t.Cleanup(c.Close)
	return c
}

func testMessage(from, to uuid.UUID, content string) domain.ChatMessage {
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.ChatMessage{ID: &id, SenderID: from, ReceiverID: to, Content: content, MessageType: domain.MessageTypeText, CreatedDate: &now}
}

func push(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	var data []byte
	switch v := v.(type) {
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		require.NoError(t, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

func TestConnectRequiresUserID(t *testing.T) {
	c := newTestConn(t, "ws://127.0.0.1:1/web-socket/chat")
	assert.ErrorIs(t, c.Connect(context.Background(), uuid.Nil), ErrEmptyUserID)
}

func TestConnectSendsIdentity(t *testing.T) {
	s := newPushServer(t)
	me := uuid.New()
	c := newTestConn(t, s.endpoint(), WithConnSession(StaticSession(Session{AccessToken: "tok"})))

	require.NoError(t, c.Connect(context.Background(), me))
	q := <-s.queries
	assert.Equal(t, me.String(), q.Get("userId"))
	assert.Equal(t, "tok", q.Get("token"))
	assert.True(t, c.Connected())
}

func TestConnectIsIdempotent(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint())
	me := uuid.New()

	require.NoError(t, c.Connect(context.Background(), me))
	require.NoError(t, c.Connect(context.Background(), me))
	s.next(t)

	assert.Equal(t, int32(1), s.accepts.Load())
}

func TestDisconnectWhenNotConnected(t *testing.T) {
	c := newTestConn(t, "ws://127.0.0.1:1/web-socket/chat")
	status, cancel := c.Status()
	defer cancel()
	<-status

	c.Disconnect()
	c.Disconnect()
	assert.False(t, c.Connected())
	assert.Empty(t, status)
}

func TestDisconnectPublishesFalse(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint())
	require.NoError(t, c.Connect(context.Background(), uuid.New()))

	status, cancel := c.Status()
	defer cancel()
	assert.True(t, <-status)

	c.Disconnect()
	assert.False(t, <-status)
	assert.False(t, c.Connected())
}

func TestMalformedFramesAreDropped(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint())
	me, them := uuid.New(), uuid.New()

	msgs, cancel := c.Messages()
	defer cancel()

	require.NoError(t, c.Connect(context.Background(), me))
	server := s.next(t)

	push(t, server, "not json")
	push(t, server, map[string]any{"type": "typing", "userId": them})
	want := testMessage(them, me, "hello")
	push(t, server, want)

	select {
	case got := <-msgs:
		assert.Equal(t, *want.ID, *got.ID)
		assert.Equal(t, "hello", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	assert.Empty(t, msgs)
	assert.True(t, c.Connected())
}

func TestMessagesBroadcastToEverySubscriber(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint())
	me, them := uuid.New(), uuid.New()

	a, cancelA := c.Messages()
	defer cancelA()
	b, cancelB := c.Messages()
	defer cancelB()

	require.NoError(t, c.Connect(context.Background(), me))
	push(t, s.next(t), testMessage(them, me, "hi"))

	for _, ch := range []<-chan domain.ChatMessage{a, b} {
		select {
		case got := <-ch:
			assert.Equal(t, "hi", got.Content)
		case <-time.After(2 * time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestDialFailurePublishesFalse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	c := newTestConn(t, endpoint)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.Error(t, c.Connect(ctx, uuid.New()))
	assert.False(t, c.Connected())
}

func TestServerDropMarksDisconnected(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint())
	me := uuid.New()

	require.NoError(t, c.Connect(context.Background(), me))
	s.next(t).CloseNow()

	require.Eventually(t, func() bool { return !c.Connected() }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), s.accepts.Load(), "reconnect is off by default")

	require.NoError(t, c.Connect(context.Background(), me))
	s.next(t)
	assert.Equal(t, int32(2), s.accepts.Load())
	assert.True(t, c.Connected())
}

func TestReconnectAfterAbnormalClose(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint(), WithReconnect(ReconnectPolicy{
		Enabled:         true,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	}))
	me, them := uuid.New(), uuid.New()

	msgs, cancel := c.Messages()
	defer cancel()

	require.NoError(t, c.Connect(context.Background(), me))
	s.next(t).CloseNow()

	second := s.next(t)
	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	push(t, second, testMessage(them, me, "after reconnect"))
	select {
	case got := <-msgs:
		assert.Equal(t, "after reconnect", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered after reconnect")
	}
}

func TestNoReconnectAfterNormalClose(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint(), WithReconnect(ReconnectPolicy{
		Enabled:         true,
		InitialInterval: 10 * time.Millisecond,
	}))

	require.NoError(t, c.Connect(context.Background(), uuid.New()))
	s.next(t).Close(websocket.StatusNormalClosure, "bye")

	require.Eventually(t, func() bool { return !c.Connected() }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), s.accepts.Load())
}

func TestDisconnectStopsReconnect(t *testing.T) {
	s := newPushServer(t)
	c := newTestConn(t, s.endpoint(), WithReconnect(ReconnectPolicy{
		Enabled:         true,
		InitialInterval: 200 * time.Millisecond,
	}))

	require.NoError(t, c.Connect(context.Background(), uuid.New()))
	s.reject.Store(true)
	s.next(t).CloseNow()
	require.Eventually(t, func() bool { return s.attempts.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	c.Disconnect()
	s.reject.Store(false)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), s.accepts.Load())
	assert.False(t, c.Connected())
}
