package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"heistctf/internal/middlewares"
	"heistctf/internal/models"
	"heistctf/internal/repositories"
	"heistctf/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TeamHandler struct {
	teamRepo     repositories.TeamRepository
	userRepo     repositories.UserRepository
	tokenService *services.TokenService
}

func NewTeamHandler(teamRepo repositories.TeamRepository, userRepo repositories.UserRepository,
	tokenService *services.TokenService) *TeamHandler {
	return &TeamHandler{teamRepo: teamRepo, userRepo: userRepo, tokenService: tokenService}
}

// CreateTeam creates the team and puts the creator on it.
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	var req models.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	team, err := h.teamRepo.Create(context.Background(), req.Name)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			c.JSON(http.StatusConflict, gin.H{"error": "Team name already exists"})
			return
		}
		respondError(c, err, "Failed to create team")
		return
	}

	if err := h.userRepo.SetTeam(context.Background(), userID, &team.ID); err != nil {
		respondError(c, err, "Failed to join created team", zap.Int("team_id", team.ID))
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *TeamHandler) GetTeam(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
		return
	}

	team, err := h.teamRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get team", zap.Int("team_id", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           team.ID,
		"name":         team.Name,
		"total_points": team.TotalPoints(),
		"members":      team.Members,
		"created_at":   team.CreatedAt,
	})
}

func (h *TeamHandler) JoinTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
		return
	}

	if _, err := h.teamRepo.GetByID(context.Background(), id); err != nil {
		respondError(c, err, "Failed to get team", zap.Int("team_id", id))
		return
	}

	if err := h.userRepo.SetTeam(context.Background(), userID, &id); err != nil {
		respondError(c, err, "Failed to join team", zap.Int("team_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined team successfully"})
}

func (h *TeamHandler) LeaveTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	if err := h.userRepo.SetTeam(context.Background(), userID, nil); err != nil {
		respondError(c, err, "Failed to leave team", zap.Int("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left team successfully"})
}

func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
		return
	}

	if err := h.teamRepo.Delete(context.Background(), id); err != nil {
		respondError(c, err, "Failed to delete team", zap.Int("team_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted successfully"})
}

func (h *TeamHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/teams")
	{
		group.GET("/:id", h.GetTeam)
	}

	authed := router.Group("/api/teams")
	authed.Use(middlewares.AuthMiddleware(h.tokenService))
	{
		authed.POST("", h.CreateTeam)
		authed.POST("/:id/join", h.JoinTeam)
		authed.POST("/leave", h.LeaveTeam)
	}

	admin := router.Group("/api/teams")
	admin.Use(middlewares.AuthMiddleware(h.tokenService), middlewares.RequireAdmin())
	{
		admin.DELETE("/:id", h.DeleteTeam)
	}
}
