package repository

import (
	"context"
	"errors"
	"time"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
)

// ErrMessageExists signals an insert that lost the broker_message_id
// uniqueness race. Callers treat it as "already applied", not a failure.
var ErrMessageExists = errors.New("repository: message with this broker message id already exists")

// ChatRepository defines persistence operations for the chat pipeline.
type ChatRepository interface {
	CreateChat(ctx context.Context, c chat.Chat) (string, error)
	AddParticipants(ctx context.Context, chatID string, userIDs []string) error
	// FindDirectChat returns the non-group chat whose participant set is
	// exactly userIDs, or nil when no such chat exists.
	FindDirectChat(ctx context.Context, userIDs []string) (*chat.Chat, error)
	ChatExists(ctx context.Context, chatID string) (bool, error)
	IsParticipant(ctx context.Context, chatID string, userID string) (bool, error)
	ListParticipantIDs(ctx context.Context, chatID string) ([]string, error)
	FindMessageByBrokerID(ctx context.Context, brokerMessageID string) (*chat.Message, error)
	SaveMessage(ctx context.Context, m chat.Message) (string, error)
	SaveAttachment(ctx context.Context, a chat.Attachment) (string, error)
	TouchChatActivity(ctx context.Context, chatID string, at time.Time) error
	// ChatsByUser returns the chats the user participates in, most recently
	// active first, each with its latest message when one exists.
	ChatsByUser(ctx context.Context, userID string, limit int, offset int) ([]chat.ChatSummary, error)
	// MessagesByChat pages a chat's history newest-first. A non-empty search
	// narrows the page to messages whose content matches it, case-insensitively.
	MessagesByChat(ctx context.Context, chatID string, search string, limit int, offset int) ([]chat.Message, error)
	AttachmentsByMessageIDs(ctx context.Context, messageIDs []string) (map[string]chat.Attachment, error)
}
