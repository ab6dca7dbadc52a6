package gateway

import (
	"context"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	"github.com/ivalrivall/chat-be/internal/infrastructure/realtime"
	"github.com/ivalrivall/chat-be/internal/metrics"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/presence"
)

// NotificationListener subscribes this instance to the broadcast channel and
// forwards each delivery event to the recipients' local sockets. Every
// gateway instance consumes every event; recipients without a socket here are
// simply someone else's to deliver.
type NotificationListener struct {
	logger   *zap.SugaredLogger
	cache    cacheport.Cache
	presence *presence.Store
	registry *realtime.Registry
	channel  string

	parsers fastjson.ParserPool
}

func NewNotificationListener(
	logger *zap.SugaredLogger,
	cache cacheport.Cache,
	presenceStore *presence.Store,
	registry *realtime.Registry,
	channel string,
) *NotificationListener {
	return &NotificationListener{
		logger:   logger,
		cache:    cache,
		presence: presenceStore,
		registry: registry,
		channel:  channel,
	}
}

// Run consumes the broadcast channel until ctx is cancelled or the
// subscription terminates.
func (l *NotificationListener) Run(ctx context.Context) error {
	sub, err := l.cache.Subscribe(ctx, l.channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	l.logger.Infow("notification listener started", "channel", l.channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			if _, err := l.Dispatch(ctx, payload); err != nil {
				l.logger.Errorw("notification dispatch failed", "error", err)
			}
		}
	}
}

// Dispatch routes one raw notification to every recipient socket registered
// on this instance and reports how many sockets it reached. Connection ids in
// the presence set that are not local are skipped without error. The raw
// envelope is forwarded as-is so clients see exactly what the worker
// published.
func (l *NotificationListener) Dispatch(ctx context.Context, payload []byte) (int, error) {
	parser := l.parsers.Get()
	defer l.parsers.Put(parser)

	v, err := parser.ParseBytes(payload)
	if err != nil {
		l.logger.Warnw("dropping undecodable notification", "error", err)
		return 0, nil
	}

	recipients := v.GetArray("recipientUserIds")
	if len(recipients) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, r := range recipients {
		userID := string(r.GetStringBytes())
		if userID == "" {
			continue
		}

		connectionIDs, err := l.presence.Connections(ctx, userID)
		if err != nil {
			l.logger.Errorw("presence lookup failed", "userId", userID, "error", err)
			continue
		}

		for _, connectionID := range connectionIDs {
			if l.registry.EmitTo(connectionID, payload) {
				delivered++
			}
		}
	}

	if delivered > 0 {
		metrics.NotificationsDelivered.Add(float64(delivered))
	}
	return delivered, nil
}
