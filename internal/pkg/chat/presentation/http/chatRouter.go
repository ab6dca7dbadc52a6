package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivalrivall/chat-be/internal/auth"
	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	"github.com/ivalrivall/chat-be/internal/infrastructure/realtime"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/broker"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/presence"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/presentation/controller"
)

// Deps carries everything the chat endpoints need. Constructed once in main
// and handed down through the router.
type Deps struct {
	Logger         *zap.SugaredLogger
	Pool           *pgxpool.Pool
	Cache          cacheport.Cache
	Topology       *broker.Topology
	Registry       *realtime.Registry
	Presence       *presence.Store
	Tokens         *auth.TokenManager
	DedupKeyPrefix string
	DedupTTL       time.Duration
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps Deps) {
	createCtl := controller.NewCreateChatController(deps.Pool)
	listChatsCtl := controller.NewListChatsController(deps.Pool)
	sendMsgCtl := controller.NewSendMessageController(deps.Pool, deps.Cache, deps.Topology, deps.DedupKeyPrefix, deps.DedupTTL)
	getMsgCtl := controller.NewGetMessageController(deps.Pool)
	participantsCtl := controller.NewListParticipantsController(deps.Pool)
	socketCtl := controller.NewChatSocketController(
		deps.Logger, deps.Pool, deps.Cache, deps.Topology,
		deps.Registry, deps.Presence, deps.Tokens,
		deps.DedupKeyPrefix, deps.DedupTTL,
	)

	authed := g.Group("", auth.RequireAuth(deps.Tokens))

	// POST /api/v1/chat -> create a chat
	authed.POST("/chat", createCtl.Handle())

	// GET /api/v1/chats -> the requester's chat list, most recently active first
	authed.GET("/chats", listChatsCtl.Handle())

	// POST /api/v1/chat/:chatId/messages -> submit a message into a chat
	authed.POST("/chat/:chatId/messages", sendMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/messages -> fetch messages by chat id
	authed.GET("/chat/:chatId/messages", getMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/participants -> fetch the chat roster
	authed.GET("/chat/:chatId/participants", participantsCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint; authenticates from the
	// token query param itself, so it sits outside the bearer middleware.
	g.GET("/chat/ws", socketCtl.Handle())
}
