package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	"github.com/ivalrivall/chat-be/internal/metrics"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/notify"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/task"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// PersistMessageUseCase applies one dequeued send: idempotent insert keyed by
// the broker message id, per-chat sequence assignment via the shared
// counter, activity touch, and the two delivery notifications.
//
// The sequence increment and the row insert are deliberately not one atomic
// unit: a crash in between skips a number. Sequences are strictly increasing
// and unique per chat, never assumed contiguous.
type PersistMessageUseCase struct {
	Repo     repository.ChatRepository
	Cache    cacheport.Cache
	Notifier *notify.Notifier

	SequenceKeyPrefix string
}

func NewPersistMessageUseCase(
	repo repository.ChatRepository,
	cache cacheport.Cache,
	notifier *notify.Notifier,
	sequenceKeyPrefix string,
) *PersistMessageUseCase {
	return &PersistMessageUseCase{
		Repo:              repo,
		Cache:             cache,
		Notifier:          notifier,
		SequenceKeyPrefix: sequenceKeyPrefix,
	}
}

// Execute persists the payload exactly once. Replaying a broker message id
// that already has a row is a no-op, which covers broker redelivery after a
// crash between persistence and acknowledgment.
func (uc *PersistMessageUseCase) Execute(ctx context.Context, p task.QueuedSendPayload) error {
	existing, err := uc.Repo.FindMessageByBrokerID(ctx, p.BrokerMessageID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		return nil
	}

	sequence, err := uc.Cache.Incr(ctx, uc.SequenceKeyPrefix+p.ChatID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg := chat.Message{
		ChatID:          p.ChatID,
		SenderID:        p.SenderID,
		Content:         p.Content,
		Type:            p.MessageType,
		Status:          chat.MessageStatusSent,
		Sequence:        sequence,
		BrokerMessageID: p.BrokerMessageID,
		ClientMessageID: &p.ClientMessageID,
		SentAt:          p.SentAt,
	}

	id, err := uc.Repo.SaveMessage(ctx, msg)
	if errors.Is(err, repository.ErrMessageExists) {
		// Lost an insert race against a concurrent redelivery; the row is
		// there, so this delivery is already applied.
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	var attachment *chat.Attachment
	if p.Attachment != nil {
		a := chat.Attachment{
			MessageID: id,
			FileKey:   p.Attachment.FileKey,
			MimeType:  p.Attachment.MimeType,
			Size:      p.Attachment.Size,
			Type:      p.Attachment.AttachmentType,
		}
		attachmentID, err := uc.Repo.SaveAttachment(ctx, a)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		a.ID = attachmentID
		attachment = &a
	}

	if err := uc.Repo.TouchChatActivity(ctx, p.ChatID, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	participantIDs, err := uc.Repo.ListParticipantIDs(ctx, p.ChatID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	recipients := make([]string, 0, len(participantIDs))
	for _, userID := range participantIDs {
		if userID != p.SenderID {
			recipients = append(recipients, userID)
		}
	}

	view := notify.ViewOf(msg, attachment)

	if err := uc.Notifier.Publish(ctx, notify.Notification{
		Event:            notify.EventNewMessage,
		RecipientUserIDs: recipients,
		ChatID:           p.ChatID,
		Message:          view,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.NotificationsPublished.Inc()

	// The sender's own event drives optimistic-UI reconciliation.
	if err := uc.Notifier.Publish(ctx, notify.Notification{
		Event:            notify.EventMessageSaved,
		RecipientUserIDs: []string{p.SenderID},
		ChatID:           p.ChatID,
		Message:          view,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.NotificationsPublished.Inc()

	metrics.MessagesPersisted.Inc()

	return nil
}
