package usecase

import (
	"context"
	"fmt"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/notify"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// GetMessagesInput carries parameters to page through a chat's history.
// Search, when non-empty, narrows the page to messages whose content
// contains it, case-insensitively.
type GetMessagesInput struct {
	ChatID string
	UserID string
	Search string
	Limit  int
	Offset int
}

// GetMessagesUseCase fetches a chat's messages in sequence order, newest
// first, for participants only. This is the read path a reconnecting client
// uses to backfill.
type GetMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessagesUseCase(repo repository.ChatRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Repo: repo}
}

// Execute returns message views honoring limit/offset.
func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]notify.MessageView, error) {
	if in.ChatID == "" || in.UserID == "" {
		return nil, fmt.Errorf("chatId and userId are required")
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ChatID, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, chat.ErrNotParticipant
	}

	msgs, err := uc.Repo.MessagesByChat(ctx, in.ChatID, in.Search, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	attachments, err := uc.Repo.AttachmentsByMessageIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	views := make([]notify.MessageView, 0, len(msgs))
	for _, m := range msgs {
		var attachment *chat.Attachment
		if a, ok := attachments[m.ID]; ok {
			attachment = &a
		}
		views = append(views, notify.ViewOf(m, attachment))
	}
	return views, nil
}
