package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
)

// Delivery event names on the broadcast channel.
const (
	EventNewMessage   = "new message"
	EventMessageSaved = "message saved"
)

// AttachmentView is the externally visible shape of an attachment.
type AttachmentView struct {
	ID             string              `json:"id"`
	AttachmentType chat.AttachmentType `json:"attachmentType"`
	FileKey        string              `json:"fileKey"`
	MimeType       string              `json:"mimeType"`
	Size           int64               `json:"size"`
}

// MessageView is the externally visible shape of a persisted message, as
// delivered to clients.
type MessageView struct {
	ID              string             `json:"id"`
	ChatID          string             `json:"chatId"`
	SenderID        string             `json:"senderId"`
	Content         *string            `json:"content"`
	MessageType     chat.MessageType   `json:"messageType"`
	Status          chat.MessageStatus `json:"status"`
	Sequence        int64              `json:"sequence"`
	BrokerMessageID string             `json:"brokerMessageId"`
	ClientMessageID *string            `json:"clientMessageId"`
	SentAt          time.Time          `json:"sentAt"`
	Attachment      *AttachmentView    `json:"attachment,omitempty"`
}

// Notification is one delivery event. It is published once and consumed by
// every gateway instance; never persisted.
type Notification struct {
	Event            string      `json:"event"`
	RecipientUserIDs []string    `json:"recipientUserIds"`
	ChatID           string      `json:"chatId"`
	Message          MessageView `json:"message"`
}

// Notifier publishes delivery events onto the shared broadcast channel.
type Notifier struct {
	cache   cacheport.Cache
	channel string
}

// NewNotifier binds a notifier to the broadcast channel name.
func NewNotifier(cache cacheport.Cache, channel string) *Notifier {
	return &Notifier{cache: cache, channel: channel}
}

// Publish serializes and broadcasts one notification.
func (n *Notifier) Publish(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("notify: marshal notification: %w", err)
	}
	if err := n.cache.Publish(ctx, n.channel, body); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", n.channel, err)
	}
	return nil
}

// ViewOf builds the client-facing view of a persisted message.
func ViewOf(m chat.Message, attachment *chat.Attachment) MessageView {
	view := MessageView{
		ID:              m.ID,
		ChatID:          m.ChatID,
		SenderID:        m.SenderID,
		Content:         m.Content,
		MessageType:     m.Type,
		Status:          m.Status,
		Sequence:        m.Sequence,
		BrokerMessageID: m.BrokerMessageID,
		ClientMessageID: m.ClientMessageID,
		SentAt:          m.SentAt,
	}
	if attachment != nil {
		view.Attachment = &AttachmentView{
			ID:             attachment.ID,
			AttachmentType: attachment.Type,
			FileKey:        attachment.FileKey,
			MimeType:       attachment.MimeType,
			Size:           attachment.Size,
		}
	}
	return view
}
