package task

import (
	"time"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
)

// PersistMessageTaskType is the queue task name carried by every queued send.
const PersistMessageTaskType = "chat:persist_message"

// QueuedAttachment is the attachment descriptor travelling with a queued
// send. The blob itself is already in external storage under FileKey.
type QueuedAttachment struct {
	AttachmentType chat.AttachmentType `json:"attachmentType"`
	FileKey        string              `json:"fileKey"`
	MimeType       string              `json:"mimeType"`
	Size           int64               `json:"size"`
}

// QueuedSendPayload is the broker-resident representation of one logical send
// attempt. BrokerMessageID stays stable across retries; RetryCount is the
// only field mutated between deliveries.
type QueuedSendPayload struct {
	BrokerMessageID string            `json:"brokerMessageId"`
	ClientMessageID string            `json:"clientMessageId"`
	ChatID          string            `json:"chatId"`
	SenderID        string            `json:"senderId"`
	Content         *string           `json:"content"`
	MessageType     chat.MessageType  `json:"messageType"`
	SentAt          time.Time         `json:"sentAt"`
	Partition       int               `json:"partition"`
	RetryCount      int               `json:"retryCount"`
	Attachment      *QueuedAttachment `json:"attachment"`
}

// DeadLetterPayload is a queued send that exhausted its retry budget,
// annotated with the time of the final failure for operator inspection.
type DeadLetterPayload struct {
	QueuedSendPayload
	FailedAt time.Time `json:"failedAt"`
}
