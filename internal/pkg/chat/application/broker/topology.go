package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	qport "github.com/ivalrivall/chat-be/internal/infrastructure/queue/port"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/task"
)

// deadLetterRetention keeps dead-lettered payloads inspectable long enough
// for out-of-band replay tooling.
const deadLetterRetention = 7 * 24 * time.Hour

// Topology is the chat message broker layout: a fixed number of partition
// queues, a delayed retry path back into each partition, and one shared
// dead-letter queue nothing consumes.
//
// Every message of one chat hashes to the same partition and is therefore
// processed by the same single consumer, which is what makes per-chat
// ordering possible. The layout is derived purely from configuration, so
// constructing it is idempotent and safe on every process start.
type Topology struct {
	client      qport.Client
	partitions  int
	queuePrefix string
	deadQueue   string
	retryDelay  time.Duration
}

// Config carries the broker layout knobs.
type Config struct {
	Partitions  int
	QueuePrefix string
	DeadQueue   string
	RetryDelay  time.Duration
}

// NewTopology validates the layout and binds it to a queue client.
func NewTopology(client qport.Client, cfg Config) (*Topology, error) {
	if client == nil {
		return nil, errors.New("broker: nil queue client")
	}
	if cfg.Partitions < 1 {
		return nil, fmt.Errorf("broker: partition count must be at least 1, got %d", cfg.Partitions)
	}
	if cfg.QueuePrefix == "" {
		return nil, errors.New("broker: queue prefix is required")
	}
	if cfg.DeadQueue == "" {
		return nil, errors.New("broker: dead-letter queue name is required")
	}
	if cfg.RetryDelay <= 0 {
		return nil, fmt.Errorf("broker: retry delay must be positive, got %s", cfg.RetryDelay)
	}
	return &Topology{
		client:      client,
		partitions:  cfg.Partitions,
		queuePrefix: cfg.QueuePrefix,
		deadQueue:   cfg.DeadQueue,
		retryDelay:  cfg.RetryDelay,
	}, nil
}

// Partitions returns the fixed partition count.
func (t *Topology) Partitions() int {
	return t.partitions
}

// PartitionFor deterministically assigns a chat to a partition.
func (t *Topology) PartitionFor(chatID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chatID))
	return int(h.Sum32() % uint32(t.partitions))
}

// PartitionQueue names the main queue of partition p.
func (t *Topology) PartitionQueue(p int) string {
	return fmt.Sprintf("%s:p%d", t.queuePrefix, p)
}

// DeadQueue names the shared dead-letter queue.
func (t *Topology) DeadQueue() string {
	return t.deadQueue
}

// PublishMessage enqueues a fresh send onto its partition queue.
func (t *Topology) PublishMessage(ctx context.Context, payload task.QueuedSendPayload) error {
	return t.publish(ctx, t.PartitionQueue(payload.Partition), payload, 0)
}

// PublishRetry parks a failed send in the delay path of its partition; the
// broker re-delivers it to the main queue once the retry delay elapses, so a
// failing message never blocks its partition.
func (t *Topology) PublishRetry(ctx context.Context, payload task.QueuedSendPayload) error {
	return t.publish(ctx, t.PartitionQueue(payload.Partition), payload, t.retryDelay)
}

// PublishDead routes a terminally failed send to the dead-letter queue.
func (t *Topology) PublishDead(ctx context.Context, payload task.DeadLetterPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal dead-letter payload: %w", err)
	}
	return t.PublishDeadRaw(ctx, body)
}

// PublishDeadRaw dead-letters an opaque body. Used for payloads that cannot
// even be decoded, so nothing is ever dropped silently.
func (t *Topology) PublishDeadRaw(ctx context.Context, body []byte) error {
	_, err := t.client.Enqueue(ctx,
		qport.Task{Type: task.PersistMessageTaskType, Payload: body},
		qport.EnqueueOption{Queue: t.deadQueue, Retention: deadLetterRetention},
	)
	if err != nil {
		return fmt.Errorf("broker: enqueue to %s: %w", t.deadQueue, err)
	}
	return nil
}

func (t *Topology) publish(ctx context.Context, queue string, payload task.QueuedSendPayload, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: marshal payload: %w", err)
	}
	_, err = t.client.Enqueue(ctx,
		qport.Task{Type: task.PersistMessageTaskType, Payload: body},
		qport.EnqueueOption{Queue: queue, ProcessIn: delay},
	)
	if err != nil {
		return fmt.Errorf("broker: enqueue to %s: %w", queue, err)
	}
	return nil
}
