package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivalrivall/chat-be/internal/auth"
	cacheport "github.com/ivalrivall/chat-be/internal/infrastructure/cache/port"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/broker"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/usecase"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/adapter"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	UC *usecase.EnqueueMessageUseCase
}

func NewSendMessageController(
	pool *pgxpool.Pool,
	cache cacheport.Cache,
	topology *broker.Topology,
	dedupKeyPrefix string,
	dedupTTL time.Duration,
) *SendMessageController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewEnqueueMessageUseCase(repo, cache, topology, dedupKeyPrefix, dedupTTL)
	return &SendMessageController{UC: uc}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	Content         *string                `json:"content"`
	ClientMessageID *string                `json:"clientMessageId"`
	Attachment      *sendMessageAttachment `json:"attachment"`
}

type sendMessageAttachment struct {
	FileKey  string `json:"fileKey" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
	Size     int64  `json:"size"`
}

// Handle accepts a message for asynchronous delivery. A 202 means "queued",
// never "saved"; the client learns of persistence via the "message saved"
// realtime event.
func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.EnqueueMessageInput{
			ChatID:          chatID,
			SenderID:        auth.UserID(c),
			Content:         req.Content,
			ClientMessageID: req.ClientMessageID,
		}
		if req.Attachment != nil {
			in.Attachment = &usecase.AttachmentInput{
				FileKey:  req.Attachment.FileKey,
				MimeType: req.Attachment.MimeType,
				Size:     req.Attachment.Size,
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		result, err := h.UC.Execute(ctx, in)
		if err != nil {
			status, msg := http.StatusBadRequest, "invalid request"
			switch {
			case errors.Is(err, usecase.ErrPersistence):
				status, msg = http.StatusInternalServerError, "unexpected persistence error"
			case errors.Is(err, chat.ErrChatNotFound):
				status, msg = http.StatusNotFound, err.Error()
			case errors.Is(err, chat.ErrNotParticipant):
				status, msg = http.StatusForbidden, err.Error()
			case errors.Is(err, chat.ErrEmptyMessage):
				status, msg = http.StatusUnprocessableEntity, err.Error()
			}
			c.JSON(status, gin.H{"error": msg})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"brokerMessageId": result.BrokerMessageID,
			"clientMessageId": result.ClientMessageID,
		})
	}
}
