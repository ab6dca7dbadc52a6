package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/notify"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/task"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

const testSequencePrefix = "chat:seq:"

func newPersistFixture(t *testing.T) (*PersistMessageUseCase, *fakeRepo, *fakeCache) {
	t.Helper()
	repo := newFakeRepo()
	cache := newFakeCache()
	notifier := notify.NewNotifier(cache, "chat:notifications")
	uc := NewPersistMessageUseCase(repo, cache, notifier, testSequencePrefix)
	return uc, repo, cache
}

func persistPayload(brokerID string) task.QueuedSendPayload {
	return task.QueuedSendPayload{
		BrokerMessageID: brokerID,
		ClientMessageID: "client-" + brokerID,
		ChatID:          "chat-1",
		SenderID:        "alice",
		Content:         strptr("hello"),
		MessageType:     chat.MessageTypeText,
		SentAt:          time.Now().UTC(),
		Partition:       0,
	}
}

func decodeNotifications(t *testing.T, cache *fakeCache) []notify.Notification {
	t.Helper()
	var out []notify.Notification
	for _, p := range cache.published {
		require.Equal(t, "chat:notifications", p.channel)
		var n notify.Notification
		require.NoError(t, json.Unmarshal(p.payload, &n))
		out = append(out, n)
	}
	return out
}

func TestPersistMessageAssignsSequenceAndNotifies(t *testing.T) {
	uc, repo, cache := newPersistFixture(t)
	repo.addChat("chat-1", true, "alice", "bob", "carol")

	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-1")))

	require.Len(t, repo.messages, 1)
	saved := repo.messages[0]
	require.Equal(t, int64(1), saved.Sequence)
	require.Equal(t, chat.MessageStatusSent, saved.Status)
	require.Equal(t, "bm-1", saved.BrokerMessageID)
	require.Equal(t, []string{"chat-1"}, repo.touchedChats)

	notifications := decodeNotifications(t, cache)
	require.Len(t, notifications, 2)

	require.Equal(t, notify.EventNewMessage, notifications[0].Event)
	require.ElementsMatch(t, []string{"bob", "carol"}, notifications[0].RecipientUserIDs)
	require.Equal(t, int64(1), notifications[0].Message.Sequence)

	require.Equal(t, notify.EventMessageSaved, notifications[1].Event)
	require.Equal(t, []string{"alice"}, notifications[1].RecipientUserIDs)
}

func TestPersistMessageSequencesIncreasePerChat(t *testing.T) {
	uc, repo, _ := newPersistFixture(t)
	repo.addChat("chat-1", false, "alice", "bob")

	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-1")))
	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-2")))
	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-3")))

	require.Len(t, repo.messages, 3)
	for i, m := range repo.messages {
		require.Equal(t, int64(i+1), m.Sequence)
	}
}

func TestPersistMessageRedeliveryIsNoOp(t *testing.T) {
	uc, repo, cache := newPersistFixture(t)
	repo.addChat("chat-1", false, "alice", "bob")

	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-1")))
	publishedBefore := len(cache.published)

	// Same broker message id again, as after a crash between persist and ack.
	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-1")))

	require.Len(t, repo.messages, 1)
	require.Len(t, cache.published, publishedBefore)
	// The sequence counter must not have burned a number on the replay.
	require.Equal(t, int64(1), cache.counters[testSequencePrefix+"chat-1"])
}

func TestPersistMessageLostInsertRaceIsNoOp(t *testing.T) {
	uc, repo, cache := newPersistFixture(t)
	repo.addChat("chat-1", false, "alice", "bob")
	repo.failSaveMessage = repository.ErrMessageExists

	require.NoError(t, uc.Execute(context.Background(), persistPayload("bm-1")))

	require.Empty(t, repo.messages)
	require.Empty(t, cache.published)
}

func TestPersistMessageSavesAttachment(t *testing.T) {
	uc, repo, cache := newPersistFixture(t)
	repo.addChat("chat-1", false, "alice", "bob")

	p := persistPayload("bm-1")
	p.MessageType = chat.MessageTypeMixed
	p.Attachment = &task.QueuedAttachment{
		AttachmentType: chat.AttachmentTypeImage,
		FileKey:        "uploads/cat.png",
		MimeType:       "image/png",
		Size:           2048,
	}

	require.NoError(t, uc.Execute(context.Background(), p))

	require.Len(t, repo.attachments, 1)
	att := repo.attachments[0]
	require.Equal(t, repo.messages[0].ID, att.MessageID)
	require.Equal(t, chat.AttachmentTypeImage, att.Type)

	notifications := decodeNotifications(t, cache)
	require.Len(t, notifications, 2)
	require.NotNil(t, notifications[0].Message.Attachment)
	require.Equal(t, "uploads/cat.png", notifications[0].Message.Attachment.FileKey)
}

func TestPersistMessagePropagatesRepositoryFailure(t *testing.T) {
	uc, repo, _ := newPersistFixture(t)
	repo.addChat("chat-1", false, "alice", "bob")
	repo.failSaveMessage = context.DeadlineExceeded

	err := uc.Execute(context.Background(), persistPayload("bm-1"))
	require.ErrorIs(t, err, ErrPersistence)
}
