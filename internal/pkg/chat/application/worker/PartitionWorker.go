package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	qport "github.com/ivalrivall/chat-be/internal/infrastructure/queue/port"
	"github.com/ivalrivall/chat-be/internal/metrics"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/broker"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/task"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/usecase"
)

// ServerFactory builds a queue consumer bound to one queue. The worker uses
// it to start one consumer per partition.
type ServerFactory func(queue string) (qport.Server, error)

// PartitionWorker runs one consumer per partition. Each consumer processes
// its queue with bounded prefetch, so messages of one chat are applied one
// at a time and in arrival order.
//
// Every delivery is acknowledged unconditionally: a failed persistence is
// rescheduled by explicit republish (retry path or dead-letter), never by
// queue-native redelivery, so a poisoned message can neither loop forever
// nor block its partition.
type PartitionWorker struct {
	logger     *zap.SugaredLogger
	topology   *broker.Topology
	persist    *usecase.PersistMessageUseCase
	newServer  ServerFactory
	maxRetries int

	servers []qport.Server
}

func NewPartitionWorker(
	logger *zap.SugaredLogger,
	topology *broker.Topology,
	persist *usecase.PersistMessageUseCase,
	newServer ServerFactory,
	maxRetries int,
) *PartitionWorker {
	return &PartitionWorker{
		logger:     logger,
		topology:   topology,
		persist:    persist,
		newServer:  newServer,
		maxRetries: maxRetries,
	}
}

// Run starts all partition consumers and blocks until the context is
// canceled, then drains them.
func (w *PartitionWorker) Run(ctx context.Context) error {
	partitions := w.topology.Partitions()
	w.servers = make([]qport.Server, 0, partitions)

	for p := 0; p < partitions; p++ {
		queue := w.topology.PartitionQueue(p)
		srv, err := w.newServer(queue)
		if err != nil {
			w.stopAll(ctx)
			return err
		}
		srv.Register(task.PersistMessageTaskType, w.Handle)
		w.servers = append(w.servers, srv)
	}

	errs := make(chan error, len(w.servers))
	for p, srv := range w.servers {
		w.logger.Infow("starting partition consumer", "partition", p, "queue", w.topology.PartitionQueue(p))
		go func(srv qport.Server) {
			errs <- srv.Run(ctx)
		}(srv)
	}

	var firstErr error
	for range w.servers {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Handle applies one delivery. It always returns nil so the broker
// acknowledges the message; retry scheduling happens via republish only.
func (w *PartitionWorker) Handle(ctx context.Context, t qport.Task) error {
	var payload task.QueuedSendPayload
	if err := json.Unmarshal(t.Payload, &payload); err != nil {
		// Undecodable payloads cannot be retried meaningfully, but they must
		// not be lost either: dead-letter the raw body for inspection.
		w.logger.Errorw("dead-lettering undecodable payload", "error", err)
		if dlErr := w.topology.PublishDeadRaw(ctx, t.Payload); dlErr != nil {
			w.logger.Errorw("failed to dead-letter undecodable payload", "error", dlErr)
		}
		metrics.MessagesDeadLettered.Inc()
		return nil
	}

	if err := w.persist.Execute(ctx, payload); err != nil {
		w.handleFailure(ctx, payload, err)
	}
	return nil
}

func (w *PartitionWorker) handleFailure(ctx context.Context, payload task.QueuedSendPayload, cause error) {
	payload.RetryCount++

	if payload.RetryCount > w.maxRetries {
		w.logger.Errorw("retry budget exhausted, dead-lettering message",
			"brokerMessageId", payload.BrokerMessageID,
			"chatId", payload.ChatID,
			"retryCount", payload.RetryCount,
			"error", cause,
		)
		dead := task.DeadLetterPayload{QueuedSendPayload: payload, FailedAt: time.Now().UTC()}
		if err := w.topology.PublishDead(ctx, dead); err != nil {
			w.logger.Errorw("failed to publish to dead-letter queue", "brokerMessageId", payload.BrokerMessageID, "error", err)
		}
		metrics.MessagesDeadLettered.Inc()
		return
	}

	w.logger.Warnw("persistence failed, scheduling retry",
		"brokerMessageId", payload.BrokerMessageID,
		"chatId", payload.ChatID,
		"retryCount", payload.RetryCount,
		"error", cause,
	)
	if err := w.topology.PublishRetry(ctx, payload); err != nil {
		w.logger.Errorw("failed to publish to retry path", "brokerMessageId", payload.BrokerMessageID, "error", err)
	}
	metrics.MessagesRetried.Inc()
}

func (w *PartitionWorker) stopAll(ctx context.Context) {
	for _, srv := range w.servers {
		_ = srv.Stop(ctx)
	}
}
