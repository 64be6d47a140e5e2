package chatclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
	"nhooyr.io/websocket"
)

const (
	defaultReadLimit     = 64 * 1024
	defaultMessageBuffer = 64
)

// Conn owns the single push connection of a client. Inbound chat messages
// fan out to every Messages subscriber and the open/closed state is
// published on Status.
type Conn struct {
	endpoint  string
	session   SessionProvider
	logger    *log.Logger
	dialOpts  *websocket.DialOptions
	reconnect ReconnectPolicy
	readLimit int64

	messages *Feed[domain.ChatMessage]
	status   *StatusFeed

	// connectMu serializes Connect, Disconnect and redials.
	connectMu sync.Mutex

	mu     sync.Mutex
	ws     *websocket.Conn
	open   bool
	cancel context.CancelFunc // ends the current session's read loop and redials
}

type ConnOption func(*Conn)

func WithConnLogger(l *log.Logger) ConnOption {
	return func(c *Conn) { c.logger = l }
}

// WithConnSession supplies the token sent on the connection URL.
func WithConnSession(sp SessionProvider) ConnOption {
	return func(c *Conn) { c.session = sp }
}

func WithDialOptions(opts *websocket.DialOptions) ConnOption {
	return func(c *Conn) { c.dialOpts = opts }
}

func WithReconnect(p ReconnectPolicy) ConnOption {
	return func(c *Conn) { c.reconnect = p }
}

// WithMessageBuffer sets how many undelivered messages each subscriber can
// hold before new ones are dropped for it.
func WithMessageBuffer(n int) ConnOption {
	return func(c *Conn) { c.messages = NewFeed[domain.ChatMessage](n) }
}

func WithReadLimit(n int64) ConnOption {
	return func(c *Conn) { c.readLimit = n }
}

// NewConn returns a closed connection for endpoint, for example
// ws://localhost:8080/web-socket/chat.
func NewConn(endpoint string, opts ...ConnOption) *Conn {
	c := &Conn{
		endpoint:  endpoint,
		logger:    log.Default(),
		readLimit: defaultReadLimit,
		messages:  NewFeed[domain.ChatMessage](defaultMessageBuffer),
		status:    NewStatusFeed(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Messages subscribes to inbound chat messages. Messages that arrived before
// the subscription are not replayed.
func (c *Conn) Messages() (<-chan domain.ChatMessage, func()) {
	return c.messages.Subscribe()
}

// Status subscribes to the connection state. The current value is delivered
// first.
func (c *Conn) Status() (<-chan bool, func()) {
	return c.status.Subscribe()
}

func (c *Conn) Connected() bool {
	return c.status.Get()
}

// Connect opens the connection for userID. It does nothing when a
// connection is already open, and replaces one that is no longer open. A
// dial failure publishes false and is returned.
func (c *Conn) Connect(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrEmptyUserID
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.ws != nil && c.open {
		c.mu.Unlock()
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	sess, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	return c.dial(ctx, sess, userID)
}

// dial must be called with connectMu held.
func (c *Conn) dial(ctx, sess context.Context, userID uuid.UUID) error {
	target, err := c.url(userID)
	if err != nil {
		c.status.Set(false)
		return err
	}

	c.mu.Lock()
	stale := c.ws
	c.ws, c.open = nil, false
	c.mu.Unlock()
	if stale != nil {
		stale.Close(websocket.StatusNormalClosure, "reconnecting")
	}

	ws, _, err := websocket.Dial(ctx, target, c.dialOpts)
	if err != nil {
		c.status.Set(false)
		c.logger.Printf("chatclient: connect failed: %v", err)
		return fmt.Errorf("chatclient: dial: %w", err)
	}
	ws.SetReadLimit(c.readLimit)

	c.mu.Lock()
	c.ws, c.open = ws, true
	c.mu.Unlock()

	c.status.Set(true)
	c.logger.Printf("chatclient: connected as %s", userID)

	go c.readLoop(sess, ws, userID)
	return nil
}

func (c *Conn) url(userID uuid.UUID) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("chatclient: bad endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("userId", userID.String())
	if c.session != nil {
		if s, err := c.session.Current(); err == nil && s != nil && s.AccessToken != "" {
			q.Set("token", s.AccessToken)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Conn) readLoop(sess context.Context, ws *websocket.Conn, userID uuid.UUID) {
	for {
		_, data, err := ws.Read(sess)
		if err != nil {
			c.closed(sess, ws, userID, err)
			return
		}

		frame := DecodeFrame(data)
		if frame.Kind != FrameMessage {
			c.logger.Printf("chatclient: dropping frame: %s", frame.Reason)
			continue
		}
		c.messages.Publish(frame.Message)
	}
}

// closed handles the end of a read loop. The handle is kept so the next
// Connect can close it before redialing.
func (c *Conn) closed(sess context.Context, ws *websocket.Conn, userID uuid.UUID, err error) {
	if sess.Err() != nil {
		return
	}

	c.mu.Lock()
	current := c.ws == ws
	if current {
		c.open = false
	}
	c.mu.Unlock()
	if !current {
		return
	}

	c.status.Set(false)

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		c.logger.Printf("chatclient: connection closed by server (%d)", status)
		return
	}
	c.logger.Printf("chatclient: connection lost: %v", err)

	if c.reconnect.Enabled {
		go c.redial(sess, userID)
	}
}

func (c *Conn) redial(sess context.Context, userID uuid.UUID) {
	op := func() error {
		c.connectMu.Lock()
		defer c.connectMu.Unlock()

		if err := sess.Err(); err != nil {
			return backoff.Permanent(err)
		}
		c.mu.Lock()
		open := c.open
		c.mu.Unlock()
		if open {
			return nil
		}

		dialCtx, cancel := context.WithTimeout(sess, 30*time.Second)
		defer cancel()
		return c.dial(dialCtx, sess, userID)
	}
	notify := func(err error, next time.Duration) {
		c.logger.Printf("chatclient: reconnect failed, retrying in %s: %v", next, err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(c.reconnect.backOff(), sess), notify)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Printf("chatclient: giving up reconnecting: %v", err)
	}
}

// Disconnect closes the connection and stops any pending reconnect. It is
// a no-op when nothing is connected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	ws := c.ws
	c.ws, c.open = nil, false
	c.mu.Unlock()

	if ws == nil {
		return
	}
	ws.Close(websocket.StatusNormalClosure, "disconnect")
	c.status.Set(false)
	c.logger.Printf("chatclient: disconnected")
}

// Close disconnects and ends every subscription.
func (c *Conn) Close() {
	c.Disconnect()
	c.messages.Close()
	c.status.Close()
}
