package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/dealerchat/internal/domain"
	"github.com/vedran77/dealerchat/internal/repository/memory"
)

type chatFixture struct {
	svc      *ChatService
	repo     *memory.ChatRepo
	notifier *recordingNotifier
	buyer    *domain.User
	dealer   *domain.User
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	buyer := &domain.User{ID: uuid.New(), Username: "buyer", FullName: "Le Buyer"}
	dealer := &domain.User{ID: uuid.New(), Username: "dealer", FullName: "Saigon Motors"}
	users := memory.NewUserRepo(buyer, dealer)
	repo := memory.NewChatRepo(users)
	notifier := &recordingNotifier{}

	svc := NewChatService(repo, users)
	svc.SetNotifier(notifier)
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return &chatFixture{svc: svc, repo: repo, notifier: notifier, buyer: buyer, dealer: dealer}
}

func TestSendMessageAssignsIDAndNotifies(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	msg, err := f.svc.SendMessage(ctx, f.buyer.ID, domain.ChatMessage{
		SenderID:   f.buyer.ID,
		ReceiverID: f.dealer.ID,
		Content:    "  Is the 2019 Camry still available?  ",
	})
	require.NoError(t, err)

	require.NotNil(t, msg.ID)
	require.NotNil(t, msg.CreatedDate)
	assert.Equal(t, "Is the 2019 Camry still available?", msg.Content)
	assert.Equal(t, domain.MessageTypeText, msg.MessageType)
	assert.Equal(t, "Saigon Motors", msg.ReceiverName)
	assert.Equal(t, "Le Buyer", msg.SenderName)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, *msg.ID, *f.notifier.sent[0].ID)
}

func TestSendMessageAttachmentType(t *testing.T) {
	f := newChatFixture(t)
	url := "https://res.cloudinary.com/demo/image/upload/car.jpg"

	msg, err := f.svc.SendMessage(context.Background(), f.buyer.ID, domain.ChatMessage{
		SenderID: f.buyer.ID, ReceiverID: f.dealer.ID, Content: "photo", FileURL: &url,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeAttachment, msg.MessageType)
}

func TestSendMessageRejects(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendMessage(ctx, f.buyer.ID, domain.ChatMessage{SenderID: f.dealer.ID, ReceiverID: f.buyer.ID, Content: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SendMessage(ctx, f.buyer.ID, domain.ChatMessage{SenderID: f.buyer.ID, ReceiverID: f.buyer.ID, Content: "x"})
	assert.ErrorIs(t, err, ErrCannotMessageSelf)

	_, err = f.svc.SendMessage(ctx, f.buyer.ID, domain.ChatMessage{SenderID: f.buyer.ID, ReceiverID: uuid.New(), Content: "x"})
	assert.ErrorIs(t, err, ErrReceiverNotFound)

	assert.Empty(t, f.notifier.sent)
}

func TestSentMessageAppearsOnceInHistory(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	sent, err := f.svc.SendMessage(ctx, f.buyer.ID, domain.ChatMessage{SenderID: f.buyer.ID, ReceiverID: f.dealer.ID, Content: "hello"})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, f.dealer.ID, f.dealer.ID, f.buyer.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, *sent.ID, *history[0].ID)
}

func TestHistoryEmptyAndForbidden(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	history, err := f.svc.History(ctx, f.buyer.ID, f.buyer.ID, f.dealer.ID)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = f.svc.History(ctx, uuid.New(), f.buyer.ID, f.dealer.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestConversationsUnreadAndMarkRead(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	for _, text := range []string{"Hi", "Can I book a test drive?"} {
		_, err := f.svc.SendMessage(ctx, f.buyer.ID, domain.ChatMessage{SenderID: f.buyer.ID, ReceiverID: f.dealer.ID, Content: text})
		require.NoError(t, err)
	}

	convs, err := f.svc.ListConversations(ctx, f.dealer.ID, f.dealer.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, f.buyer.ID, convs[0].UserID)
	assert.Equal(t, "Can I book a test drive?", convs[0].LastMessage)
	assert.Equal(t, 2, convs[0].UnreadCount)

	count, err := f.svc.UnreadCount(ctx, f.dealer.ID, f.dealer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err := f.svc.MarkRead(ctx, f.dealer.ID, f.dealer.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	count, err = f.svc.UnreadCount(ctx, f.dealer.ID, f.dealer.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChatQueriesForOtherUserForbidden(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListConversations(ctx, f.buyer.ID, f.dealer.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.MarkRead(ctx, f.buyer.ID, f.dealer.ID, f.buyer.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.UnreadCount(ctx, f.buyer.ID, f.dealer.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
