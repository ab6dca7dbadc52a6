package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
)

func TestCreateChatIncludesCreator(t *testing.T) {
	repo := newFakeRepo()
	uc := NewCreateChatUseCase(repo)

	created, err := uc.Execute(context.Background(), CreateChatInput{
		CreatorUserID:  "alice",
		ParticipantIDs: []string{"bob"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	ids, err := repo.ListParticipantIDs(context.Background(), created.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "bob"}, ids)
}

func TestCreateChatDeduplicatesParticipants(t *testing.T) {
	repo := newFakeRepo()
	uc := NewCreateChatUseCase(repo)

	created, err := uc.Execute(context.Background(), CreateChatInput{
		CreatorUserID:  "alice",
		IsGroup:        true,
		ParticipantIDs: []string{"bob", "bob", "alice", "carol"},
	})
	require.NoError(t, err)

	ids, err := repo.ListParticipantIDs(context.Background(), created.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"alice", "bob", "carol"}, ids)
}

func TestCreateDirectChatTwiceReturnsExisting(t *testing.T) {
	repo := newFakeRepo()
	uc := NewCreateChatUseCase(repo)

	first, err := uc.Execute(context.Background(), CreateChatInput{
		CreatorUserID:  "alice",
		ParticipantIDs: []string{"bob"},
	})
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), CreateChatInput{
		CreatorUserID:  "bob",
		ParticipantIDs: []string{"alice"},
	})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.chats, 1)
}

func TestCreateChatRejectsSoloDirectChat(t *testing.T) {
	repo := newFakeRepo()
	uc := NewCreateChatUseCase(repo)

	_, err := uc.Execute(context.Background(), CreateChatInput{
		CreatorUserID:  "alice",
		ParticipantIDs: []string{"alice"},
	})
	require.ErrorIs(t, err, chat.ErrParticipantsInvalid)
}
