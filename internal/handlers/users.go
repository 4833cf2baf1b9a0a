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

// UserHandler is the admin console's user management surface plus the
// public profile read.
type UserHandler struct {
	userRepo     repositories.UserRepository
	tokenService *services.TokenService
}

func NewUserHandler(userRepo repositories.UserRepository, tokenService *services.TokenService) *UserHandler {
	return &UserHandler{userRepo: userRepo, tokenService: tokenService}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.List(context.Background())
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.userRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get user", zap.Int("user_id", id))
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser applies the admin edit, including the point override the
// scoring rules allow outside the submission path.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req models.AdminUserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userRepo.Update(context.Background(), id, &req); err != nil {
		respondError(c, err, "Failed to update user", zap.Int("user_id", id))
		return
	}

	user, err := h.userRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get user", zap.Int("user_id", id))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) setBlocked(c *gin.Context, blocked bool, message string) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.userRepo.SetBlocked(context.Background(), id, blocked); err != nil {
		respondError(c, err, "Failed to update blocked flag", zap.Int("user_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *UserHandler) setMuted(c *gin.Context, muted bool, message string) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.userRepo.SetMuted(context.Background(), id, muted); err != nil {
		respondError(c, err, "Failed to update muted flag", zap.Int("user_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func (h *UserHandler) BlockUser(c *gin.Context)   { h.setBlocked(c, true, "User blocked successfully") }
func (h *UserHandler) UnblockUser(c *gin.Context) { h.setBlocked(c, false, "User unblocked successfully") }
func (h *UserHandler) MuteUser(c *gin.Context)    { h.setMuted(c, true, "User muted successfully") }
func (h *UserHandler) UnmuteUser(c *gin.Context)  { h.setMuted(c, false, "User unmuted successfully") }

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.userRepo.Delete(context.Background(), id); err != nil {
		respondError(c, err, "Failed to delete user", zap.Int("user_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) RegisterRoutes(router *gin.Engine) {
	authed := router.Group("/api/users")
	authed.Use(middlewares.AuthMiddleware(h.tokenService))
	{
		authed.GET("/:id", h.GetUser)
	}

	admin := router.Group("/api/users")
	admin.Use(middlewares.AuthMiddleware(h.tokenService), middlewares.RequireAdmin())
	{
		admin.GET("", h.ListUsers)
		admin.PUT("/:id", h.UpdateUser)
		admin.PUT("/:id/block", h.BlockUser)
		admin.PUT("/:id/unblock", h.UnblockUser)
		admin.PUT("/:id/mute", h.MuteUser)
		admin.PUT("/:id/unmute", h.UnmuteUser)
		admin.DELETE("/:id", h.DeleteUser)
	}
}
