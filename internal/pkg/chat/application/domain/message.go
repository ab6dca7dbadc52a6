package chat

import (
	"strings"
	"time"
)

// MessageType classifies what a message carries.
type MessageType string

const (
	MessageTypeText       MessageType = "TEXT"
	MessageTypeAttachment MessageType = "ATTACHMENT"
	MessageTypeMixed      MessageType = "MIXED"
)

// MessageStatus is the persistence status of a message. Only SENT exists
// today; the column is kept for delivery-state extensions.
type MessageStatus string

const (
	MessageStatusSent MessageStatus = "SENT"
)

// Message is an immutable log entry in a chat.
//
// Sequence is assigned at persistence time and is strictly increasing and
// unique within the chat, but not necessarily contiguous: a crash between the
// counter increment and the row insert leaves a gap. BrokerMessageID is the
// idempotency key for persistence and stays stable across delivery retries;
// ClientMessageID is the submitter's idempotency key.
type Message struct {
	ID              string        `db:"id"`
	ChatID          string        `db:"chat_id"`
	SenderID        string        `db:"sender_id"`
	Content         *string       `db:"content"`
	Type            MessageType   `db:"message_type"`
	Status          MessageStatus `db:"status"`
	Sequence        int64         `db:"sequence"`
	BrokerMessageID string        `db:"broker_message_id"`
	ClientMessageID *string       `db:"client_message_id"`
	SentAt          time.Time     `db:"sent_at"`
}

// ResolveMessageType derives the message type from what the submission
// carries.
func ResolveMessageType(content *string, hasAttachment bool) MessageType {
	switch {
	case content != nil && hasAttachment:
		return MessageTypeMixed
	case hasAttachment:
		return MessageTypeAttachment
	default:
		return MessageTypeText
	}
}

// NormalizeContent trims content and collapses whitespace-only bodies to nil.
func NormalizeContent(content *string) *string {
	if content == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*content)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
