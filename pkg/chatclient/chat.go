// Package chatclient is the real-time side of a dealerchat client: one push
// connection per logged-in user, the conversation list, the transcript of
// the open conversation, and the send path.
package chatclient

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
)

// API is the REST surface Chat depends on. *Client implements it.
type API interface {
	ConversationSource
	HistorySource
	SendMessage(ctx context.Context, draft domain.ChatMessage) (*domain.ChatMessage, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Chat ties the connection, the conversation list and the open transcript
// together for one logged-in user.
type Chat struct {
	api            API
	conn           *Conn
	session        SessionProvider
	logger         *log.Logger
	requestTimeout time.Duration

	conversations *ConversationCache
	transcript    *Transcript

	mu       sync.RWMutex
	profile  domain.Profile
	selected *domain.Conversation
	ctx      context.Context
	cancel   context.CancelFunc
	stopSub  func()

	wg sync.WaitGroup
}

type ChatOption func(*Chat)

func WithChatLogger(l *log.Logger) ChatOption {
	return func(c *Chat) { c.logger = l }
}

// WithRequestTimeout bounds each background call (list reloads, read
// receipts). The default is 15 seconds.
func WithRequestTimeout(d time.Duration) ChatOption {
	return func(c *Chat) { c.requestTimeout = d }
}

func NewChat(api API, conn *Conn, session SessionProvider, opts ...ChatOption) *Chat {
	c := &Chat{
		api:            api,
		conn:           conn,
		session:        session,
		logger:         log.Default(),
		requestTimeout: 15 * time.Second,
		conversations:  NewConversationCache(api),
		transcript:     NewTranscript(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start reads the session, connects, begins routing inbound messages and
// loads the conversation list. A failed connect or list load is logged and
// does not stop the chat; the connection status reports the former.
func (c *Chat) Start(ctx context.Context) error {
	sess, err := c.session.Current()
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNoSession
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return errors.New("chatclient: chat already started")
	}
	c.profile = sess.Profile
	c.ctx, c.cancel = context.WithCancel(context.Background())
	inbound, stop := c.conn.Messages()
	c.stopSub = stop
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for msg := range inbound {
			c.route(msg)
		}
	}()

	if err := c.conn.Connect(ctx, sess.Profile.UserID); err != nil {
		c.logger.Printf("chatclient: starting without push connection: %v", err)
	}

	if _, err := c.conversations.Reload(ctx, sess.Profile.UserID); err != nil {
		c.logger.Printf("chatclient: loading conversations: %v", err)
	}
	return nil
}

// Stop disconnects, ends routing and waits for background calls to finish.
func (c *Chat) Stop() {
	c.mu.Lock()
	cancel, stop := c.cancel, c.stopSub
	c.cancel, c.stopSub = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	c.conn.Disconnect()
	stop()
	c.wg.Wait()
}

// route handles one inbound message. A message from the open counterpart
// joins the transcript and is marked read; every message refreshes the list.
func (c *Chat) route(msg domain.ChatMessage) {
	c.mu.RLock()
	me := c.profile.UserID
	selected := c.selected
	c.mu.RUnlock()

	if selected != nil && msg.SenderID == selected.UserID && c.transcript.Counterpart() == msg.SenderID {
		c.transcript.Append(msg)
		from := msg.SenderID
		c.background("mark read", func(ctx context.Context) error {
			return c.conversations.MarkRead(ctx, me, from)
		})
	}
	c.reloadLater()
}

func (c *Chat) reloadLater() {
	c.mu.RLock()
	me := c.profile.UserID
	c.mu.RUnlock()

	c.background("reload conversations", func(ctx context.Context) error {
		_, err := c.conversations.Reload(ctx, me)
		return err
	})
}

// background runs fn on its own goroutine. Failures are logged only.
func (c *Chat) background(op string, fn func(ctx context.Context) error) {
	c.mu.RLock()
	parent := c.ctx
	c.mu.RUnlock()
	if parent == nil || parent.Err() != nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(parent, c.requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Printf("chatclient: %s: %v", op, err)
		}
	}()
}

// Select opens conv: its full history replaces the transcript and, when it
// has unread messages, they are marked read in the background. If another
// conversation is selected before the history arrives, the result is
// dropped.
func (c *Chat) Select(ctx context.Context, conv domain.Conversation) error {
	c.mu.Lock()
	selected := conv
	c.selected = &selected
	me := c.profile.UserID
	c.mu.Unlock()

	if conv.UnreadCount > 0 {
		c.background("mark read", func(ctx context.Context) error {
			return c.conversations.MarkRead(ctx, me, conv.UserID)
		})
	}

	if _, err := c.transcript.Load(ctx, c.api, me, conv.UserID); err != nil {
		c.logger.Printf("chatclient: loading history with %s: %v", conv.UserID, err)
		return err
	}
	return nil
}

// SelectUser opens the conversation with userID, starting an empty one
// named name when the list has none yet.
func (c *Chat) SelectUser(ctx context.Context, userID uuid.UUID, name string) error {
	conv, ok := c.conversations.Find(userID)
	if !ok {
		conv = domain.Conversation{UserID: userID, UserName: name}
	}
	return c.Select(ctx, conv)
}

// Send posts content to the selected counterpart as a text message.
func (c *Chat) Send(ctx context.Context, content string) (*domain.ChatMessage, error) {
	return c.send(ctx, strings.TrimSpace(content), nil)
}

// SendAttachment posts a message carrying an uploaded file URL. caption is
// the message content.
func (c *Chat) SendAttachment(ctx context.Context, caption, fileURL string) (*domain.ChatMessage, error) {
	return c.send(ctx, strings.TrimSpace(caption), &fileURL)
}

func (c *Chat) send(ctx context.Context, content string, fileURL *string) (*domain.ChatMessage, error) {
	c.mu.RLock()
	draft := domain.ChatMessage{
		SenderID:     c.profile.UserID,
		SenderName:   c.profile.DisplayName(),
		SenderAvatar: c.profile.Avatar,
		Content:      content,
		MessageType:  domain.MessageTypeText,
		FileURL:      fileURL,
	}
	if fileURL != nil {
		draft.MessageType = domain.MessageTypeAttachment
	}
	if c.selected != nil {
		draft.ReceiverID = c.selected.UserID
		draft.ReceiverName = c.selected.UserName
		draft.ReceiverAvatar = c.selected.UserAvatar
	}
	c.mu.RUnlock()

	msg, err := c.api.SendMessage(ctx, draft)
	if err != nil {
		c.logger.Printf("chatclient: send to %s: %v", draft.ReceiverID, err)
		return nil, err
	}

	if c.transcript.Counterpart() == msg.ReceiverID {
		c.transcript.Append(*msg)
	}
	c.reloadLater()
	return msg, nil
}

// UnreadCount asks the server for the local user's total unread count.
func (c *Chat) UnreadCount(ctx context.Context) (int, error) {
	c.mu.RLock()
	me := c.profile.UserID
	c.mu.RUnlock()
	return c.api.UnreadCount(ctx, me)
}

// Refresh reloads the conversation list now.
func (c *Chat) Refresh(ctx context.Context) error {
	c.mu.RLock()
	me := c.profile.UserID
	c.mu.RUnlock()
	_, err := c.conversations.Reload(ctx, me)
	return err
}

func (c *Chat) Conversations() []domain.Conversation {
	return c.conversations.Snapshot()
}

func (c *Chat) Messages() []domain.ChatMessage {
	return c.transcript.Messages()
}

func (c *Chat) Selected() (domain.Conversation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.selected == nil {
		return domain.Conversation{}, false
	}
	return *c.selected, true
}

func (c *Chat) Profile() domain.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profile
}

func (c *Chat) Connected() bool {
	return c.conn.Connected()
}
