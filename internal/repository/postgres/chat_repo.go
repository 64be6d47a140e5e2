package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/dealerchat/internal/domain"
)

const messageSelect = `
	SELECT m.id, m.sender_id, s.full_name, COALESCE(s.avatar_url, ''),
		m.receiver_id, r.full_name, COALESCE(r.avatar_url, ''),
		m.content, m.message_type, m.is_read, m.file_url, m.created_at
	FROM chat_messages m
	JOIN users s ON m.sender_id = s.id
	JOIN users r ON m.receiver_id = r.id`

type ChatRepo struct {
	pool *pgxpool.Pool
}

func NewChatRepo(pool *pgxpool.Pool) *ChatRepo {
	return &ChatRepo{pool: pool}
}

func (r *ChatRepo) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, sender_id, receiver_id, content, message_type, is_read, file_url, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.MessageType, msg.FileURL, msg.CreatedDate,
	)
	return err
}

func (r *ChatRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.ChatMessage, error) {
	msg, err := scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return msg, err
}

func (r *ChatRepo) ListHistory(ctx context.Context, user1ID, user2ID uuid.UUID) ([]domain.ChatMessage, error) {
	query := messageSelect + `
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
			OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.created_at ASC, m.id ASC`

	rows, err := r.pool.Query(ctx, query, user1ID, user2ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *ChatRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	query := `
		WITH pairs AS (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id,
				sender_id, receiver_id, content, is_read, created_at
			FROM chat_messages
			WHERE sender_id = $1 OR receiver_id = $1
		), last AS (
			SELECT DISTINCT ON (other_id) other_id, content, created_at
			FROM pairs
			ORDER BY other_id, created_at DESC
		), unread AS (
			SELECT other_id, COUNT(*) AS cnt
			FROM pairs
			WHERE receiver_id = $1 AND NOT is_read
			GROUP BY other_id
		)
		SELECT l.other_id, COALESCE(NULLIF(u.full_name, ''), u.username), COALESCE(u.avatar_url, ''),
			l.content, COALESCE(n.cnt, 0), l.created_at
		FROM last l
		JOIN users u ON u.id = l.other_id
		LEFT JOIN unread n ON n.other_id = l.other_id
		ORDER BY l.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.UserID, &conv.UserName, &conv.UserAvatar,
			&conv.LastMessage, &conv.UnreadCount, &conv.LastMessageTime,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ChatRepo) MarkRead(ctx context.Context, userID, fromUserID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_messages SET is_read = TRUE
		WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read`, userID, fromUserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ChatRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE receiver_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

func scanMessage(row pgx.Row) (*domain.ChatMessage, error) {
	var (
		msg       domain.ChatMessage
		id        uuid.UUID
		isRead    bool
		createdAt time.Time
	)
	if err := row.Scan(
		&id, &msg.SenderID, &msg.SenderName, &msg.SenderAvatar,
		&msg.ReceiverID, &msg.ReceiverName, &msg.ReceiverAvatar,
		&msg.Content, &msg.MessageType, &isRead, &msg.FileURL, &createdAt,
	); err != nil {
		return nil, err
	}
	msg.ID = &id
	msg.IsRead = &isRead
	msg.CreatedDate = &createdAt
	return &msg, nil
}
