package handlers

import (
	"context"
	"net/http"
	"strconv"

	"heistctf/internal/middlewares"
	"heistctf/internal/models"
	"heistctf/internal/repositories"
	"heistctf/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messageRepo  repositories.MessageRepository
	userRepo     repositories.UserRepository
	tokenService *services.TokenService
}

func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository,
	tokenService *services.TokenService) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo, userRepo: userRepo, tokenService: tokenService}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	user, err := h.userRepo.GetByID(context.Background(), userID)
	if err != nil {
		respondError(c, err, "Failed to get sender", zap.Int("user_id", userID))
		return
	}
	if user.IsMuted {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are muted and cannot send messages"})
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = models.MessagePrivate
	}
	if kind == models.MessageBroadcast && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can broadcast"})
		return
	}

	msg := models.Message{
		SenderID:    &userID,
		RecipientID: req.RecipientID,
		Kind:        kind,
		Content:     req.Content,
	}
	if err := h.messageRepo.Create(context.Background(), &msg); err != nil {
		respondError(c, err, "Failed to send message", zap.Int("user_id", userID))
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	msgs, err := h.messageRepo.ForUser(context.Background(), userID)
	if err != nil {
		respondError(c, err, "Failed to get messages", zap.Int("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	if err := h.messageRepo.MarkRead(context.Background(), id, userID); err != nil {
		respondError(c, err, "Failed to mark message read",
			zap.Int64("message_id", id),
			zap.Int("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}

func (h *MessageHandler) RegisterRoutes(router *gin.Engine) {
	authed := router.Group("/api/messages")
	authed.Use(middlewares.AuthMiddleware(h.tokenService))
	{
		authed.POST("", h.SendMessage)
		authed.GET("", h.GetMessages)
		authed.PUT("/:id/read", h.MarkRead)
	}
}
