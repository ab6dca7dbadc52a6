package port

import (
	"context"
	"time"
)

// Cache is the contract for the shared key-value store the pipeline
// synchronizes through. Implementations must be concurrency-safe and every
// primitive that establishes exclusivity (SetNX, Incr) must be atomic on the
// backend, never a client-side read-modify-write.
//
// Values are stored as strings to keep the port generic and avoid coupling
// to serialization concerns.
type Cache interface {
	// Get fetches the value for key. Misses are reported as ("", ErrMiss);
	// a non-nil error other than ErrMiss means a transport or server failure.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value at key with the provided TTL. Zero or negative TTL
	// means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetNX stores value at key only if the key does not exist yet and
	// reports whether this call won the write. The TTL applies only when the
	// write wins.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments the integer stored at key and returns the
	// new value. A missing key counts as zero.
	Incr(ctx context.Context, key string) (int64, error)

	// SAdd adds member to the set stored at key.
	SAdd(ctx context.Context, key string, member string) error

	// SRem removes member from the set stored at key.
	SRem(ctx context.Context, key string, member string) error

	// SMembers returns all members of the set stored at key. A missing key
	// yields an empty slice, not an error.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Del removes one or more keys and returns the number of keys removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Publish sends payload to every subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a subscription on channel. The returned Subscription
	// must be closed by the caller.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Ping verifies connectivity with the backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// Subscription is a live pub/sub channel membership. Messages is closed when
// the subscription terminates.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// ErrMiss should be used by adapters to signal a cache miss in a typed way.
// This allows callers to differentiate misses from transport errors.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
