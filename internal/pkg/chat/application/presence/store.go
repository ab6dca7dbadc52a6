package presence

import (
	"context"
	"fmt"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
)

// Store keeps the per-user set of live connection identifiers in the shared
// store, so every gateway instance can resolve which connections a recipient
// currently holds. Entries are scoped to connection lifetime only.
type Store struct {
	cache     cacheport.Cache
	keyPrefix string
}

// NewStore constructs a presence store under the given key namespace.
func NewStore(cache cacheport.Cache, keyPrefix string) *Store {
	return &Store{cache: cache, keyPrefix: keyPrefix}
}

// Add records a live connection id for the user.
func (s *Store) Add(ctx context.Context, userID string, connectionID string) error {
	if err := s.cache.SAdd(ctx, s.key(userID), connectionID); err != nil {
		return fmt.Errorf("presence: add %s: %w", connectionID, err)
	}
	return nil
}

// Remove drops a connection id from the user's presence set.
func (s *Store) Remove(ctx context.Context, userID string, connectionID string) error {
	if err := s.cache.SRem(ctx, s.key(userID), connectionID); err != nil {
		return fmt.Errorf("presence: remove %s: %w", connectionID, err)
	}
	return nil
}

// Connections lists the user's live connection ids across all instances.
func (s *Store) Connections(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.cache.SMembers(ctx, s.key(userID))
	if err != nil {
		return nil, fmt.Errorf("presence: list for %s: %w", userID, err)
	}
	return ids, nil
}

func (s *Store) key(userID string) string {
	return s.keyPrefix + userID
}
