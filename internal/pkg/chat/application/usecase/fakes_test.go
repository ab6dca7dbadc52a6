package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	qport "github.com/ivalrivall/chat-be/internal/infrastructure/queue/port"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	repository "github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/port"
)

// ============ in-memory repository ============

type fakeRepo struct {
	mu sync.Mutex

	chats        map[string]chat.Chat
	participants map[string][]string
	messages     []chat.Message
	attachments  []chat.Attachment

	nextID int

	failSaveMessage error
	touchedChats    []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		chats:        make(map[string]chat.Chat),
		participants: make(map[string][]string),
	}
}

func (r *fakeRepo) addChat(chatID string, isGroup bool, participantIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chatID] = chat.Chat{ID: chatID, IsGroup: isGroup}
	r.participants[chatID] = append([]string(nil), participantIDs...)
}

func (r *fakeRepo) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s-%d", prefix, r.nextID)
}

func (r *fakeRepo) CreateChat(_ context.Context, c chat.Chat) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id("chat")
	r.chats[c.ID] = c
	return c.ID, nil
}

func (r *fakeRepo) AddParticipants(_ context.Context, chatID string, userIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[chatID] = append(r.participants[chatID], userIDs...)
	return nil
}

func (r *fakeRepo) FindDirectChat(_ context.Context, userIDs []string) (*chat.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := append([]string(nil), userIDs...)
	sort.Strings(want)
	for chatID, c := range r.chats {
		if c.IsGroup {
			continue
		}
		got := append([]string(nil), r.participants[chatID]...)
		sort.Strings(got)
		if strings.Join(got, ",") == strings.Join(want, ",") {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ChatExists(_ context.Context, chatID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.chats[chatID]
	return ok, nil
}

func (r *fakeRepo) IsParticipant(_ context.Context, chatID string, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.participants[chatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ListParticipantIDs(_ context.Context, chatID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.participants[chatID]...), nil
}

func (r *fakeRepo) FindMessageByBrokerID(_ context.Context, brokerMessageID string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.BrokerMessageID == brokerMessageID {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) SaveMessage(_ context.Context, m chat.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaveMessage != nil {
		return "", r.failSaveMessage
	}
	for _, existing := range r.messages {
		if existing.BrokerMessageID == m.BrokerMessageID {
			return "", repository.ErrMessageExists
		}
	}
	m.ID = r.id("msg")
	r.messages = append(r.messages, m)
	return m.ID, nil
}

func (r *fakeRepo) SaveAttachment(_ context.Context, a chat.Attachment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id("att")
	r.attachments = append(r.attachments, a)
	return a.ID, nil
}

func (r *fakeRepo) TouchChatActivity(_ context.Context, chatID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchedChats = append(r.touchedChats, chatID)
	if c, ok := r.chats[chatID]; ok {
		c.UpdatedAt = at
		r.chats[chatID] = c
	}
	return nil
}

func (r *fakeRepo) ChatsByUser(_ context.Context, userID string, limit int, offset int) ([]chat.ChatSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var summaries []chat.ChatSummary
	for chatID, c := range r.chats {
		member := false
		for _, id := range r.participants[chatID] {
			if id == userID {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		s := chat.ChatSummary{Chat: c}
		for i := range r.messages {
			m := r.messages[i]
			if m.ChatID != chatID {
				continue
			}
			if s.LastMessage == nil || m.Sequence > s.LastMessage.Sequence {
				last := m
				s.LastMessage = &last
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Chat.UpdatedAt.After(summaries[j].Chat.UpdatedAt)
	})
	if offset >= len(summaries) {
		return nil, nil
	}
	summaries = summaries[offset:]
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (r *fakeRepo) MessagesByChat(_ context.Context, chatID string, search string, limit int, offset int) ([]chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []chat.Message
	for _, m := range r.messages {
		if m.ChatID != chatID {
			continue
		}
		if search != "" {
			if m.Content == nil || !strings.Contains(strings.ToLower(*m.Content), strings.ToLower(search)) {
				continue
			}
		}
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Sequence > msgs[j].Sequence })
	if offset >= len(msgs) {
		return nil, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (r *fakeRepo) AttachmentsByMessageIDs(_ context.Context, messageIDs []string) (map[string]chat.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byMessage := make(map[string]chat.Attachment)
	for _, a := range r.attachments {
		for _, id := range messageIDs {
			if a.MessageID == id {
				byMessage[id] = a
			}
		}
	}
	return byMessage, nil
}

var _ repository.ChatRepository = (*fakeRepo)(nil)

// ============ in-memory cache ============

type publishedMessage struct {
	channel string
	payload []byte
}

type fakeCache struct {
	mu sync.Mutex

	values    map[string]string
	counters  map[string]int64
	sets      map[string]map[string]struct{}
	published []publishedMessage
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		values:   make(map[string]string),
		counters: make(map[string]int64),
		sets:     make(map[string]map[string]struct{}),
	}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	return "", cacheport.ErrMiss
}

func (c *fakeCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *fakeCache) SetNX(_ context.Context, key string, value string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	c.values[key] = strconv.FormatInt(c.counters[key], 10)
	return c.counters[key], nil
}

func (c *fakeCache) SAdd(_ context.Context, key string, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets[key] == nil {
		c.sets[key] = make(map[string]struct{})
	}
	c.sets[key][member] = struct{}{}
	return nil
}

func (c *fakeCache) SRem(_ context.Context, key string, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets[key], member)
	return nil
}

func (c *fakeCache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var members []string
	for member := range c.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := c.values[key]; ok {
			delete(c.values, key)
			removed++
		}
	}
	return removed, nil
}

func (c *fakeCache) Publish(_ context.Context, channel string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publishedMessage{channel: channel, payload: payload})
	return nil
}

func (c *fakeCache) Subscribe(context.Context, string) (cacheport.Subscription, error) {
	return nil, fmt.Errorf("not supported")
}

func (c *fakeCache) Ping(context.Context) error { return nil }
func (c *fakeCache) Close() error { return nil }

var _ cacheport.Cache = (*fakeCache)(nil)

// ============ recording queue client ============

type enqueuedTask struct {
	task qport.Task
	opt  qport.EnqueueOption
}

type fakeQueueClient struct {
	mu    sync.Mutex
	tasks []enqueuedTask
}

func (f *fakeQueueClient) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var opt qport.EnqueueOption
	if len(opts) > 0 {
		opt = opts[0]
	}
	f.tasks = append(f.tasks, enqueuedTask{task: t, opt: opt})
	return fmt.Sprintf("task-%d", len(f.tasks)), nil
}

func (f *fakeQueueClient) Close() error { return nil }

func (f *fakeQueueClient) all() []enqueuedTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]enqueuedTask(nil), f.tasks...)
}

var _ qport.Client = (*fakeQueueClient)(nil)
