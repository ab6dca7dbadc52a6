package usecase

import (
	"context"
	"fmt"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// ListParticipantsInput identifies the chat and the user asking.
type ListParticipantsInput struct {
	ChatID      string
	RequesterID string
}

// ListParticipantsUseCase returns user IDs for all participants in the chat.
// Only participants may see the roster.
type ListParticipantsUseCase struct {
	Repo repository.ChatRepository
}

func NewListParticipantsUseCase(repo repository.ChatRepository) *ListParticipantsUseCase {
	return &ListParticipantsUseCase{Repo: repo}
}

func (uc *ListParticipantsUseCase) Execute(ctx context.Context, in ListParticipantsInput) ([]string, error) {
	if in.ChatID == "" || in.RequesterID == "" {
		return nil, fmt.Errorf("chatId and requesterId are required")
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ChatID, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, chat.ErrNotParticipant
	}

	ids, err := uc.Repo.ListParticipantIDs(ctx, in.ChatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return ids, nil
}
