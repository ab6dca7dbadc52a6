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

// CreateChatController handles the chat creation endpoint
// One controller per endpoint

type CreateChatController struct {
	UC *usecase.CreateChatUseCase
}

func NewCreateChatController(pool *pgxpool.Pool) *CreateChatController {
	repo := adapter.NewPgChatRepository(pool)
	uc := usecase.NewCreateChatUseCase(repo)
	return &CreateChatController{UC: uc}
}

type createChatRequest struct {
	Name           *string  `json:"name"`
	IsGroup        bool     `json:"isGroup"`
	ParticipantIDs []string `json:"participantIds" binding:"required"`
}

func (h *CreateChatController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := usecase.CreateChatInput{
			CreatorUserID:  auth.UserID(c),
			Name:           req.Name,
			IsGroup:        req.IsGroup,
			ParticipantIDs: req.ParticipantIDs,
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		created, err := h.UC.Execute(ctx, in)
		if err != nil {
			status, msg := http.StatusBadRequest, "invalid request"
			if errors.Is(err, usecase.ErrPersistence) {
				status, msg = http.StatusInternalServerError, "unexpected persistence error"
			} else if errors.Is(err, chat.ErrParticipantsInvalid) {
				status, msg = http.StatusUnprocessableEntity, err.Error()
			}
			c.JSON(status, gin.H{"error": msg})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":        created.ID,
			"name":      created.Name,
			"isGroup":   created.IsGroup,
			"createdAt": created.CreatedAt,
		})
	}
}
