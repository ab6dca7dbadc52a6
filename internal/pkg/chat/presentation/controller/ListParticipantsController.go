package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivalrivall/chat-be/internal/auth"
	chat "github.com/ivalrivall/chat-be/internal/pkg/chat/application/domain"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/usecase"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/adapter"
)

// ListParticipantsController handles the chat roster endpoint (one controller per endpoint)
type ListParticipantsController struct {
	UC *usecase.ListParticipantsUseCase
}

func NewListParticipantsController(pool *pgxpool.Pool) *ListParticipantsController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewListParticipantsUseCase(repo)
	return &ListParticipantsController{UC: uc}
}

func (h *ListParticipantsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		chatID := c.Param("chatId")
		if chatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chatId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		ids, err := h.UC.Execute(ctx, usecase.ListParticipantsInput{
			ChatID:      chatID,
			RequesterID: auth.UserID(c),
		})
		if err != nil {
			status, msg := http.StatusBadRequest, "invalid request"
			switch {
			case errors.Is(err, usecase.ErrPersistence):
				status, msg = http.StatusInternalServerError, "unexpected persistence error"
			case errors.Is(err, chat.ErrNotParticipant):
				status, msg = http.StatusForbidden, err.Error()
			}
			c.JSON(status, gin.H{"error": msg})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"participantIds": ids,
			"count":          len(ids),
		})
	}
}
