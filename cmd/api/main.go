package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	v1 "github.com/ivalrivall/chat-be/cmd/api/router/v1"
	"github.com/ivalrivall/chat-be/internal/auth"
	"github.com/ivalrivall/chat-be/internal/config"
	cacheadapter "github.com/ivalrivall/chat-be/internal/infrastructure/cache/adapter"
	"github.com/ivalrivall/chat-be/internal/infrastructure/database"
	queueadapter "github.com/ivalrivall/chat-be/internal/infrastructure/queue/adapter"
	qport "github.com/ivalrivall/chat-be/internal/infrastructure/queue/port"
	"github.com/ivalrivall/chat-be/internal/infrastructure/realtime"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/broker"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/notify"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/presence"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/usecase"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/worker"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/adapter"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/presentation/gateway"
	httpHandler "github.com/ivalrivall/chat-be/internal/pkg/chat/presentation/http"
)

func main() {
	baseLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = baseLogger.Sync() }()
	logger := baseLogger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.Connect(connectCtx, cfg.Database.URL)
	if err != nil {
		logger.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	cache, err := cacheadapter.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		logger.Fatalw("failed to connect to redis", "error", err)
	}
	defer func() { _ = cache.Close() }()
	if err := cache.Ping(connectCtx); err != nil {
		logger.Fatalw("redis ping failed", "error", err)
	}

	queueClient, err := queueadapter.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		logger.Fatalw("failed to create queue client", "error", err)
	}
	defer func() { _ = queueClient.Close() }()

	topology, err := broker.NewTopology(queueClient, broker.Config{
		Partitions:  cfg.Broker.PartitionCount,
		QueuePrefix: cfg.Broker.QueuePrefix,
		DeadQueue:   cfg.Broker.DeadLetterQueue,
		RetryDelay:  cfg.Broker.RetryDelay,
	})
	if err != nil {
		logger.Fatalw("failed to build broker topology", "error", err)
	}

	if cfg.Chat.WorkerEnabled {
		runWorker(ctx, logger, cfg, pool, cache, topology)
		return
	}
	runAPI(ctx, logger, cfg, pool, cache, topology)
}

// runWorker runs the partition consumer role: one consumer per partition
// queue, persisting messages and publishing delivery notifications. It never
// serves chat endpoints.
func runWorker(
	ctx context.Context,
	logger *zap.SugaredLogger,
	cfg *config.Config,
	pool *pgxpool.Pool,
	cache *cacheadapter.RedisCache,
	topology *broker.Topology,
) {
	repo := adapter.NewPgChatRepository(pool)
	notifier := notify.NewNotifier(cache, cfg.Chat.NotificationChannel)
	persist := usecase.NewPersistMessageUseCase(repo, cache, notifier, cfg.Chat.SequenceKeyPrefix)

	newServer := func(queue string) (qport.Server, error) {
		return queueadapter.NewAsynqServer(cfg.Redis.URL, queue, cfg.Broker.ConsumerPrefetch)
	}
	w := worker.NewPartitionWorker(logger, topology, persist, newServer, cfg.Broker.MaxRetries)

	logger.Infow("starting partition worker",
		"partitions", cfg.Broker.PartitionCount,
		"prefetch", cfg.Broker.ConsumerPrefetch,
		"maxRetries", cfg.Broker.MaxRetries,
	)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalw("partition worker stopped", "error", err)
	}
	logger.Infow("partition worker shut down")
}

// runAPI runs the API/gateway role: HTTP endpoints, websocket delivery, and
// the notification listener that fans broadcast events out to local sockets.
func runAPI(
	ctx context.Context,
	logger *zap.SugaredLogger,
	cfg *config.Config,
	pool *pgxpool.Pool,
	cache *cacheadapter.RedisCache,
	topology *broker.Topology,
) {
	registry := realtime.NewRegistry()
	defer registry.Close()

	presenceStore := presence.NewStore(cache, cfg.Chat.PresenceKeyPrefix)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cache, cfg.Auth.RevokedKeyPrefix)

	listener := gateway.NewNotificationListener(logger, cache, presenceStore, registry, cfg.Chat.NotificationChannel)
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorw("notification listener stopped", "error", err)
		}
	}()

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1.RegisterRoutes(r, httpHandler.Deps{
		Logger:         logger,
		Pool:           pool,
		Cache:          cache,
		Topology:       topology,
		Registry:       registry,
		Presence:       presenceStore,
		Tokens:         tokens,
		DedupKeyPrefix: cfg.Chat.DedupKeyPrefix,
		DedupTTL:       cfg.Chat.DedupTTL,
	})

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	go func() {
		logger.Infow("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("http shutdown failed", "error", err)
	}
}
