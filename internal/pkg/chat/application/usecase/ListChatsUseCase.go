package usecase

import (
	"context"
	"fmt"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// ListChatsInput carries parameters to page through a user's chat list.
type ListChatsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListChatsUseCase returns the chats a user participates in, most recently
// active first, each carrying its latest message as a preview.
type ListChatsUseCase struct {
	Repo repository.ChatRepository
}

func NewListChatsUseCase(repo repository.ChatRepository) *ListChatsUseCase {
	return &ListChatsUseCase{Repo: repo}
}

func (uc *ListChatsUseCase) Execute(ctx context.Context, in ListChatsInput) ([]chat.ChatSummary, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}

	summaries, err := uc.Repo.ChatsByUser(ctx, in.UserID, in.Limit, in.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return summaries, nil
}
