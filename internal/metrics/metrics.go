package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	MessagesEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_enqueued_total",
			Help: "Total messages accepted by the submission gate",
		},
	)

	DuplicateSubmissions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_duplicate_submissions_total",
			Help: "Total submissions absorbed by the dedup window",
		},
	)

	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Total messages persisted by partition workers",
		},
	)

	MessagesRetried = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_retried_total",
			Help: "Total messages parked in the retry path",
		},
	)

	MessagesDeadLettered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_dead_lettered_total",
			Help: "Total messages routed to the dead-letter queue",
		},
	)

	// Fan-out metrics
	NotificationsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_notifications_published_total",
			Help: "Total delivery notifications published to the broadcast channel",
		},
	)

	NotificationsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_notifications_delivered_total",
			Help: "Total delivery events emitted to local sockets",
		},
	)

	// Gateway metrics
	OpenConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_websocket_connections",
			Help: "Currently open websocket connections on this instance",
		},
	)
)
