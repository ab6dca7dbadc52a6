package port

import (
	"context"
	"time"
)

// Task represents a queued message with a type and opaque payload bytes.
// Type should be a stable string identifier. Payload encoding is up to callers.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A nil return acknowledges the task; a non-nil
// error hands it back to the adapter's retry policy. Handlers that manage
// their own retry scheduling must always return nil.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behavior. Adapters map supported fields to
// the underlying backend as best-effort; zero values mean "unspecified".
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before the task becomes available
	MaxRetry  int           // adapter-level retries for the task
	Retention time.Duration // keep task metadata around after completion
}

// Client enqueues tasks.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server consumes one logical queue and dispatches tasks to registered
// handlers. Run blocks until the context is canceled, then drains in-flight
// tasks before returning.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
