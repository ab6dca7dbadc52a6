package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	"github.com/ivalrivall/chat-be/internal/metrics"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/broker"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/task"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// AttachmentInput describes a pre-uploaded attachment accompanying a
// submission. The coarse attachment type is derived from the mime type here.
type AttachmentInput struct {
	FileKey  string
	MimeType string
	Size     int64
}

// EnqueueMessageInput is one send request as it arrives from the transport
// layer.
type EnqueueMessageInput struct {
	ChatID          string
	SenderID        string
	Content         *string
	Attachment      *AttachmentInput
	ClientMessageID *string
}

// EnqueueMessageResult is the accepted response. The caller learns of final
// persistence only via the realtime "message saved" event, never through
// this call.
type EnqueueMessageResult struct {
	BrokerMessageID string
	ClientMessageID string
}

// EnqueueMessageUseCase is the submission/dedup gate: it validates the send,
// mints the idempotency ids, absorbs duplicate submissions inside the dedup
// window, and routes the payload onto the chat's partition queue.
type EnqueueMessageUseCase struct {
	Repo   repository.ChatRepository
	Cache  cacheport.Cache
	Broker *broker.Topology

	DedupKeyPrefix string
	DedupTTL       time.Duration
}

func NewEnqueueMessageUseCase(
	repo repository.ChatRepository,
	cache cacheport.Cache,
	topology *broker.Topology,
	dedupKeyPrefix string,
	dedupTTL time.Duration,
) *EnqueueMessageUseCase {
	return &EnqueueMessageUseCase{
		Repo:           repo,
		Cache:          cache,
		Broker:         topology,
		DedupKeyPrefix: dedupKeyPrefix,
		DedupTTL:       dedupTTL,
	}
}

// Execute accepts a send request and guarantees at most one enqueue per
// client message id within the dedup TTL. Submissions repeating after the
// window expires are NOT deduplicated; bounded dedup state is a deliberate
// trade-off.
func (uc *EnqueueMessageUseCase) Execute(ctx context.Context, in EnqueueMessageInput) (*EnqueueMessageResult, error) {
	if in.ChatID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("chatId and senderId are required")
	}

	exists, err := uc.Repo.ChatExists(ctx, in.ChatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !exists {
		return nil, chat.ErrChatNotFound
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ChatID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, chat.ErrNotParticipant
	}

	content := chat.NormalizeContent(in.Content)
	if content == nil && in.Attachment == nil {
		return nil, chat.ErrEmptyMessage
	}

	brokerMessageID := uuid.NewString()
	clientMessageID := brokerMessageID
	if in.ClientMessageID != nil && *in.ClientMessageID != "" {
		clientMessageID = *in.ClientMessageID
	} else {
		clientMessageID = uuid.NewString()
	}

	dedupKey := uc.DedupKeyPrefix + clientMessageID

	// Fast path: a duplicate inside the window returns the prior broker id
	// without touching the broker again.
	if prior, err := uc.Cache.Get(ctx, dedupKey); err == nil {
		metrics.DuplicateSubmissions.Inc()
		return &EnqueueMessageResult{BrokerMessageID: prior, ClientMessageID: clientMessageID}, nil
	} else if err != cacheport.ErrMiss {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	won, err := uc.Cache.SetNX(ctx, dedupKey, brokerMessageID, uc.DedupTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !won {
		// Lost the set race to a concurrent identical submission; hand back
		// whatever broker id the winner stored.
		prior, err := uc.Cache.Get(ctx, dedupKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		metrics.DuplicateSubmissions.Inc()
		return &EnqueueMessageResult{BrokerMessageID: prior, ClientMessageID: clientMessageID}, nil
	}

	payload := task.QueuedSendPayload{
		BrokerMessageID: brokerMessageID,
		ClientMessageID: clientMessageID,
		ChatID:          in.ChatID,
		SenderID:        in.SenderID,
		Content:         content,
		MessageType:     chat.ResolveMessageType(content, in.Attachment != nil),
		SentAt:          time.Now().UTC(),
		Partition:       uc.Broker.PartitionFor(in.ChatID),
		RetryCount:      0,
	}
	if in.Attachment != nil {
		payload.Attachment = &task.QueuedAttachment{
			AttachmentType: chat.AttachmentTypeFromMime(in.Attachment.MimeType),
			FileKey:        in.Attachment.FileKey,
			MimeType:       in.Attachment.MimeType,
			Size:           in.Attachment.Size,
		}
	}

	if err := uc.Broker.PublishMessage(ctx, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	metrics.MessagesEnqueued.Inc()

	return &EnqueueMessageResult{BrokerMessageID: brokerMessageID, ClientMessageID: clientMessageID}, nil
}
