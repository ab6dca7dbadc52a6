package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivalrivall/chat-be/internal/auth"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/notify"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/application/usecase"
	"github.com/ivalrivall/chat-be/internal/pkg/chat/persistence/repository/adapter"
)

// ListChatsController handles the chat-list endpoint (one controller per endpoint)
type ListChatsController struct {
	UC *usecase.ListChatsUseCase
}

func NewListChatsController(pool *pgxpool.Pool) *ListChatsController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewListChatsUseCase(repo)
	return &ListChatsController{UC: uc}
}

func (h *ListChatsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Defaults
		limit := 50
		offset := 0

		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if v := c.Query("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		summaries, err := h.UC.Execute(ctx, usecase.ListChatsInput{
			UserID: auth.UserID(c),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			status, msg := http.StatusBadRequest, "invalid request"
			if errors.Is(err, usecase.ErrPersistence) {
				status, msg = http.StatusInternalServerError, "unexpected persistence error"
			}
			c.JSON(status, gin.H{"error": msg})
			return
		}

		chats := make([]gin.H, 0, len(summaries))
		for _, s := range summaries {
			var lastMessage *notify.MessageView
			if s.LastMessage != nil {
				view := notify.ViewOf(*s.LastMessage, nil)
				lastMessage = &view
			}
			chats = append(chats, gin.H{
				"id":          s.Chat.ID,
				"name":        s.Chat.Name,
				"isGroup":     s.Chat.IsGroup,
				"createdAt":   s.Chat.CreatedAt,
				"updatedAt":   s.Chat.UpdatedAt,
				"lastMessage": lastMessage,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"chats":  chats,
			"limit":  limit,
			"offset": offset,
			"count":  len(chats),
		})
	}
}
