package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// CreateChatInput carries the required data to open a new chat. The creator
// is always included in the participant set.
type CreateChatInput struct {
	CreatorUserID  string
	Name           *string
	IsGroup        bool
	ParticipantIDs []string
}

// CreateChatUseCase handles creation of a new chat and its participants.
// At most one non-group chat exists for a given participant set; creating it
// again returns the existing chat instead of a duplicate. The guard is a
// lookup before creation, not a hard constraint.
type CreateChatUseCase struct {
	Repo repository.ChatRepository
}

func NewCreateChatUseCase(repo repository.ChatRepository) *CreateChatUseCase {
	return &CreateChatUseCase{Repo: repo}
}

// Execute persists a chat and registers participants.
func (uc *CreateChatUseCase) Execute(ctx context.Context, in CreateChatInput) (*chat.Chat, error) {
	if in.CreatorUserID == "" {
		return nil, fmt.Errorf("creator user id is required")
	}

	participantIDs := dedupeParticipants(in.CreatorUserID, in.ParticipantIDs)

	if !in.IsGroup && len(participantIDs) < 2 {
		return nil, chat.ErrParticipantsInvalid
	}
	if in.IsGroup && len(participantIDs) < 2 {
		return nil, chat.ErrParticipantsInvalid
	}

	if !in.IsGroup {
		existing, err := uc.Repo.FindDirectChat(ctx, participantIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := time.Now().UTC()
	c := chat.Chat{Name: in.Name, IsGroup: in.IsGroup, CreatedAt: now, UpdatedAt: now}

	id, err := uc.Repo.CreateChat(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	c.ID = id

	if err := uc.Repo.AddParticipants(ctx, id, participantIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &c, nil
}

// dedupeParticipants folds the creator into the set, drops blanks and
// duplicates, and sorts for a stable set comparison in the direct-chat
// lookup.
func dedupeParticipants(creatorID string, participantIDs []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	result := []string{creatorID}
	for _, id := range participantIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}
