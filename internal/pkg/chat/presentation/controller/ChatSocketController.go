package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ivalrivall/chat-be/internal/auth"
	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	"github.com/ivalrivall/chat-be/internal/infrastructure/realtime"
	"github.com/ivalrivall/chat-be/internal/metrics"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/broker"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/presence"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/usecase"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/adapter"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Sockets are delivery surfaces: outbound events arrive via the notification
// listener, and inbound "message" frames flow through the same submission
// gate the HTTP endpoint uses.
type ChatSocketController struct {
	logger          *zap.SugaredLogger
	registry        *realtime.Registry
	presence        *presence.Store
	tokens          *auth.TokenManager
	enqueueUC       *usecase.EnqueueMessageUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(
	logger *zap.SugaredLogger,
	pool *pgxpool.Pool,
	cache cacheport.Cache,
	topology *broker.Topology,
	registry *realtime.Registry,
	presenceStore *presence.Store,
	tokens *auth.TokenManager,
	dedupKeyPrefix string,
	dedupTTL time.Duration,
) *ChatSocketController {
	repo := adapter.NewPgChatRepository(pool)
	return &ChatSocketController{
		logger:          logger,
		registry:        registry,
		presence:        presenceStore,
		tokens:          tokens,
		enqueueUC:       usecase.NewEnqueueMessageUseCase(repo, cache, topology, dedupKeyPrefix, dedupTTL),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; origin policy is enforced upstream.
		return true
	},
}

type inboundFrame struct {
	Type            string                 `json:"type"`
	ChatID          string                 `json:"chatId,omitempty"`
	Content         *string                `json:"content,omitempty"`
	ClientMessageID *string                `json:"clientMessageId,omitempty"`
	Attachment      *sendMessageAttachment `json:"attachment,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type queuedFrame struct {
	Type            string `json:"type"`
	BrokerMessageID string `json:"brokerMessageId"`
	ClientMessageID string `json:"clientMessageId"`
}

type connectedFrame struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

const defaultReadTimeout = 60 * time.Second

// Handle authenticates, upgrades to websocket, and registers the connection
// for delivery until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerFromHeader(c.GetHeader("Authorization"))
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ctl.tokens.Verify(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		userID := claims.UserID

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.logger.Warnw("websocket upgrade failed", "error", err)
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.registry.Attach(conn)
		metrics.OpenConnections.Inc()
		if err := ctl.presence.Add(c.Request.Context(), userID, conn.ID); err != nil {
			ctl.logger.Errorw("presence add failed", "userId", userID, "connectionId", conn.ID, "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
			defer cancel()
			if err := ctl.presence.Remove(ctx, userID, conn.ID); err != nil {
				ctl.logger.Errorw("presence remove failed", "userId", userID, "connectionId", conn.ID, "error", err)
			}
			ctl.registry.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
			metrics.OpenConnections.Dec()
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		handshake := connectedFrame{Type: "connected", ConnectionID: conn.ID}
		if payload, err := json.Marshal(handshake); err == nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "message":
				ctl.handleMessage(c, conn, userID, frame)
			case "ping":
				_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, userID string, frame inboundFrame) {
	if frame.ChatID == "" {
		ctl.replyError(conn, "bad_request", "chatId is required")
		return
	}

	in := usecase.EnqueueMessageInput{
		ChatID:          frame.ChatID,
		SenderID:        userID,
		Content:         frame.Content,
		ClientMessageID: frame.ClientMessageID,
	}
	if frame.Attachment != nil {
		in.Attachment = &usecase.AttachmentInput{
			FileKey:  frame.Attachment.FileKey,
			MimeType: frame.Attachment.MimeType,
			Size:     frame.Attachment.Size,
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	result, err := ctl.enqueueUC.Execute(ctx, in)
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ack := queuedFrame{
		Type:            "queued",
		BrokerMessageID: result.BrokerMessageID,
		ClientMessageID: result.ClientMessageID,
	}
	if payload, err := json.Marshal(ack); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	code, message := useCaseErrorFrame(err)
	ctl.replyError(conn, code, message)
}

// useCaseErrorFrame maps a use case error to a client-facing frame. Unknown
// errors get a generic message so internal detail never reaches the wire.
func useCaseErrorFrame(err error) (code string, message string) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		return "internal_error", "unexpected persistence error"
	case errors.Is(err, chat.ErrChatNotFound):
		return "not_found", "chat not found"
	case errors.Is(err, chat.ErrNotParticipant):
		return "forbidden", "user is not a participant in this chat"
	case errors.Is(err, chat.ErrEmptyMessage):
		return "bad_request", "message needs content or an attachment"
	default:
		return "bad_request", "invalid request"
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	frame := errorFrame{
		Type:  "error",
		Code:  code,
		Error: message,
	}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func bearerFromHeader(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
