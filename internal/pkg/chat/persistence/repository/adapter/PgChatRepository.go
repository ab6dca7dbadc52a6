package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func (r *PgChatRepository) CreateChat(ctx context.Context, c chat.Chat) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chats (name, is_group, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id::text
	`, c.Name, c.IsGroup, c.CreatedAt).Scan(&id)
	return id, err
}

func (r *PgChatRepository) AddParticipants(ctx context.Context, chatID string, userIDs []string) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	for _, userID := range userIDs {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO chat_participants (chat_id, user_id, created_at)
			VALUES ($1::uuid, $2::uuid, now())
			ON CONFLICT (chat_id, user_id) DO NOTHING
		`, chatID, userID)
		if err != nil {
			return err
		}
	}
	return nil
}

// FindDirectChat matches on the exact unordered participant set: the chat
// must have len(userIDs) participants and every one of them must be in
// userIDs.
func (r *PgChatRepository) FindDirectChat(ctx context.Context, userIDs []string) (*chat.Chat, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT c.id::text, c.name, c.is_group, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		WHERE c.is_group = false
		GROUP BY c.id
		HAVING COUNT(*) = $2
		   AND COUNT(*) FILTER (WHERE p.user_id::text = ANY($1)) = $2
		LIMIT 1
	`, userIDs, len(userIDs))

	var c chat.Chat
	err := row.Scan(&c.ID, &c.Name, &c.IsGroup, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgChatRepository) ChatExists(ctx context.Context, chatID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1::uuid)",
		chatID,
	).Scan(&exists)
	return exists, err
}

func (r *PgChatRepository) IsParticipant(ctx context.Context, chatID string, userID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_participants
			WHERE chat_id = $1::uuid AND user_id = $2::uuid
		)
	`, chatID, userID).Scan(&exists)
	return exists, err
}

func (r *PgChatRepository) ListParticipantIDs(ctx context.Context, chatID string) ([]string, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx,
		"SELECT user_id::text FROM chat_participants WHERE chat_id = $1::uuid",
		chatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgChatRepository) FindMessageByBrokerID(ctx context.Context, brokerMessageID string) (*chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, chat_id::text, sender_id::text, content, message_type, status,
		       sequence, broker_message_id, client_message_id, sent_at
		FROM chat_messages
		WHERE broker_message_id = $1
	`, brokerMessageID)

	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (
			chat_id, sender_id, content, message_type, status,
			sequence, broker_message_id, client_message_id, sent_at
		) VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text
	`, m.ChatID, m.SenderID, m.Content, m.Type, m.Status,
		m.Sequence, m.BrokerMessageID, m.ClientMessageID, m.SentAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", repository.ErrMessageExists
		}
		return "", err
	}
	return id, nil
}

func (r *PgChatRepository) SaveAttachment(ctx context.Context, a chat.Attachment) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgChatRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_message_attachments (
			message_id, file_key, mime_type, size, attachment_type
		) VALUES ($1::uuid, $2, $3, $4, $5)
		RETURNING id::text
	`, a.MessageID, a.FileKey, a.MimeType, a.Size, a.Type).Scan(&id)
	return id, err
}

func (r *PgChatRepository) TouchChatActivity(ctx context.Context, chatID string, at time.Time) error {
	if r == nil || r.pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx,
		"UPDATE chats SET updated_at = $2 WHERE id = $1::uuid",
		chatID, at,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgChatRepository) ChatsByUser(ctx context.Context, userID string, limit int, offset int) ([]chat.ChatSummary, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text, c.name, c.is_group, c.created_at, c.updated_at,
		       m.id::text, m.chat_id::text, m.sender_id::text, m.content, m.message_type,
		       m.status, m.sequence, m.broker_message_id, m.client_message_id, m.sent_at
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		LEFT JOIN LATERAL (
			SELECT id, chat_id, sender_id, content, message_type, status,
			       sequence, broker_message_id, client_message_id, sent_at
			FROM chat_messages
			WHERE chat_id = c.id
			ORDER BY sequence DESC
			LIMIT 1
		) m ON true
		WHERE p.user_id = $1::uuid
		ORDER BY c.updated_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []chat.ChatSummary
	for rows.Next() {
		var (
			s chat.ChatSummary

			msgID    *string
			chatID   *string
			senderID *string
			content  *string
			msgType  *string
			status   *string
			sequence *int64
			brokerID *string
			clientID *string
			sentAt   *time.Time
		)
		err := rows.Scan(&s.Chat.ID, &s.Chat.Name, &s.Chat.IsGroup, &s.Chat.CreatedAt, &s.Chat.UpdatedAt,
			&msgID, &chatID, &senderID, &content, &msgType,
			&status, &sequence, &brokerID, &clientID, &sentAt)
		if err != nil {
			return nil, err
		}
		if msgID != nil {
			s.LastMessage = &chat.Message{
				ID:              *msgID,
				ChatID:          *chatID,
				SenderID:        *senderID,
				Content:         content,
				Type:            chat.MessageType(*msgType),
				Status:          chat.MessageStatus(*status),
				Sequence:        *sequence,
				BrokerMessageID: *brokerID,
				ClientMessageID: clientID,
				SentAt:          *sentAt,
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *PgChatRepository) MessagesByChat(ctx context.Context, chatID string, search string, limit int, offset int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, chat_id::text, sender_id::text, content, message_type, status,
		       sequence, broker_message_id, client_message_id, sent_at
		FROM chat_messages
		WHERE chat_id = $1::uuid
		  AND ($2 = '' OR content ILIKE '%' || $2 || '%')
		ORDER BY sequence DESC
		LIMIT $3 OFFSET $4
	`, chatID, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

func (r *PgChatRepository) AttachmentsByMessageIDs(ctx context.Context, messageIDs []string) (map[string]chat.Attachment, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if len(messageIDs) == 0 {
		return map[string]chat.Attachment{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, message_id::text, file_key, mime_type, size, attachment_type
		FROM chat_message_attachments
		WHERE message_id::text = ANY($1)
	`, messageIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMessage := make(map[string]chat.Attachment)
	for rows.Next() {
		var a chat.Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.FileKey, &a.MimeType, &a.Size, &a.Type); err != nil {
			return nil, err
		}
		byMessage[a.MessageID] = a
	}
	return byMessage, rows.Err()
}

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var (
		m        chat.Message
		content  *string
		clientID *string
	)
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &content, &m.Type, &m.Status,
		&m.Sequence, &m.BrokerMessageID, &clientID, &m.SentAt); err != nil {
		return nil, err
	}
	m.Content = content
	m.ClientMessageID = clientID
	return &m, nil
}
