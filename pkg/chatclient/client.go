package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/dealerchat/internal/domain"
	"github.com/vedran77/dealerchat/pkg/validator"
)

// Client talks to the chat REST API. Every call carries the bearer token of
// the current session when one is configured.
type Client struct {
	baseURL        string
	http           *http.Client
	session        SessionProvider
	logger         *log.Logger
	onUnauthorized func()
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithSession(sp SessionProvider) ClientOption {
	return func(c *Client) { c.session = sp }
}

func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// OnUnauthorized registers a hook run whenever the server answers 401,
// typically to drop the stored session.
func OnUnauthorized(fn func()) ClientOption {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient returns a client for the API rooted at baseURL, for example
// http://localhost:8080/api/v1.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	UserName string `json:"userName"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if errs := validator.ValidateRegister(req.FullName, req.UserName, req.Phone, req.Password); errs.HasErrors() {
		return nil, &ValidationError{Fields: errs}
	}
	return do[*domain.User](ctx, c, http.MethodPost, "/register/user", nil, req)
}

func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	if errs := validator.ValidateLogin(username, password); errs.HasErrors() {
		return nil, &ValidationError{Fields: errs}
	}
	body := map[string]string{"username": username, "password": password}
	return do[*domain.LoginResult](ctx, c, http.MethodPost, "/auth/login", nil, body)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.LoginResult, error) {
	body := map[string]string{"refreshToken": refreshToken}
	return do[*domain.LoginResult](ctx, c, http.MethodPost, "/auth/refresh", nil, body)
}

func (c *Client) Profile(ctx context.Context) (*domain.Profile, error) {
	return do[*domain.Profile](ctx, c, http.MethodGet, "/profile", nil, nil)
}

// SendMessage submits a draft and returns the stored message. Drafts that
// fail local validation are rejected without touching the network.
func (c *Client) SendMessage(ctx context.Context, draft domain.ChatMessage) (*domain.ChatMessage, error) {
	if errs := validator.ValidateMessage(draft.SenderID, draft.ReceiverID, draft.Content); errs.HasErrors() {
		return nil, &ValidationError{Fields: errs}
	}
	return do[*domain.ChatMessage](ctx, c, http.MethodPost, "/web-socket/send", nil, draft)
}

// History returns the messages exchanged between two users, oldest first.
func (c *Client) History(ctx context.Context, userID1, userID2 uuid.UUID) ([]domain.ChatMessage, error) {
	q := url.Values{"userId1": {userID1.String()}, "userId2": {userID2.String()}}
	return do[[]domain.ChatMessage](ctx, c, http.MethodGet, "/web-socket/history", q, nil)
}

func (c *Client) Conversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	q := url.Values{"userId": {userID.String()}}
	return do[[]domain.Conversation](ctx, c, http.MethodGet, "/web-socket/conversations", q, nil)
}

// MarkRead marks everything fromUserID sent to userID as read.
func (c *Client) MarkRead(ctx context.Context, userID, fromUserID uuid.UUID) error {
	q := url.Values{"userId": {userID.String()}, "fromUserId": {fromUserID.String()}}
	_, err := do[json.RawMessage](ctx, c, http.MethodPost, "/web-socket/mark-read", q, nil)
	return err
}

func (c *Client) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	q := url.Values{"userId": {userID.String()}}
	return do[int](ctx, c, http.MethodGet, "/web-socket/unread-count", q, nil)
}

func (c *Client) AttachmentSignature(ctx context.Context) (*domain.AttachmentSignature, error) {
	return do[*domain.AttachmentSignature](ctx, c, http.MethodGet, "/web-socket/attachment-signature", nil, nil)
}

func do[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(req); err != nil {
		return zero, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env domain.APIResponse[T]
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		c.logger.Printf("chatclient: %s %s: %v", method, path, apiErr)
		return zero, apiErr
	}
	if decodeErr != nil {
		return zero, fmt.Errorf("%s %s: decoding response: %w", method, path, decodeErr)
	}
	if !env.Success {
		return zero, &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	return env.Data, nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.session == nil {
		return nil
	}
	s, err := c.session.Current()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if s != nil && s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	}
	return nil
}
