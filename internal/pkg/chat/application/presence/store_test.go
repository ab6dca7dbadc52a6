package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
)

type setCache struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func newSetCache() *setCache {
	return &setCache{sets: make(map[string]map[string]struct{})}
}

func (c *setCache) Get(context.Context, string) (string, error) { return "", cacheport.ErrMiss }
func (c *setCache) Set(context.Context, string, string, time.Duration) error {
	return nil
}
func (c *setCache) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return true, nil
}
func (c *setCache) Incr(context.Context, string) (int64, error) { return 0, nil }

func (c *setCache) SAdd(_ context.Context, key string, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets[key] == nil {
		c.sets[key] = make(map[string]struct{})
	}
	c.sets[key][member] = struct{}{}
	return nil
}

func (c *setCache) SRem(_ context.Context, key string, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets[key], member)
	return nil
}

func (c *setCache) SMembers(_ context.Context, key string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var members []string
	for member := range c.sets[key] {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (c *setCache) Del(context.Context, ...string) (int64, error) { return 0, nil }
func (c *setCache) Publish(context.Context, string, []byte) error { return nil }
func (c *setCache) Subscribe(context.Context, string) (cacheport.Subscription, error) {
	return nil, errors.New("not supported")
}
func (c *setCache) Ping(context.Context) error { return nil }
func (c *setCache) Close() error { return nil }

var _ cacheport.Cache = (*setCache)(nil)

func TestStoreTracksConnectionsPerUser(t *testing.T) {
	cache := newSetCache()
	store := NewStore(cache, "chat:presence:")
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "alice", "conn-1"))
	require.NoError(t, store.Add(ctx, "alice", "conn-2"))
	require.NoError(t, store.Add(ctx, "bob", "conn-3"))

	conns, err := store.Connections(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"conn-1", "conn-2"}, conns)

	require.NoError(t, store.Remove(ctx, "alice", "conn-1"))
	conns, err = store.Connections(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"conn-2"}, conns)

	// Keys are namespaced per user.
	_, ok := cache.sets["chat:presence:alice"]
	require.True(t, ok)
}

func TestStoreUnknownUserHasNoConnections(t *testing.T) {
	store := NewStore(newSetCache(), "chat:presence:")

	conns, err := store.Connections(context.Background(), "nobody")
	require.NoError(t, err)
	require.Empty(t, conns)
}
