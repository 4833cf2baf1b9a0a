package handlers

import (
	"context"
	"net/http"
	"strconv"

	"heistctf/internal/middlewares"
	"heistctf/internal/models"
	"heistctf/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ScoreboardHandler struct {
	ranks        *services.RankService
	cache        services.Cache
	tokenService *services.TokenService
}

func NewScoreboardHandler(ranks *services.RankService, cache services.Cache, tokenService *services.TokenService) *ScoreboardHandler {
	return &ScoreboardHandler{ranks: ranks, cache: cache, tokenService: tokenService}
}

// GetOverall serves the cached snapshot when one exists; otherwise it
// computes live standings. Stale-by-one-submission reads are fine.
func (h *ScoreboardHandler) GetOverall(c *gin.Context) {
	var cached models.Scoreboard
	if err := h.cache.Get(context.Background(), services.CacheKeyOverall, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	board, err := h.ranks.Overall(context.Background())
	if err != nil {
		respondError(c, err, "Failed to compute scoreboard")
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *ScoreboardHandler) GetWave(c *gin.Context) {
	wave := models.Wave(c.Param("wave"))
	if !wave.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wave. Must be red, blue, or purple."})
		return
	}

	var cached models.WaveScoreboard
	if err := h.cache.Get(context.Background(), services.CacheKeyWave(wave), &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	board, err := h.ranks.WaveBoard(context.Background(), wave)
	if err != nil {
		respondError(c, err, "Failed to compute wave scoreboard", zap.String("wave", string(wave)))
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *ScoreboardHandler) GetUserStats(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	stats, err := h.ranks.UserStats(context.Background(), userID)
	if err != nil {
		respondError(c, err, "Failed to get user stats", zap.Int("user_id", userID))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ScoreboardHandler) GetTeamStats(c *gin.Context) {
	teamID, err := strconv.Atoi(c.Param("teamId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid team ID"})
		return
	}

	stats, err := h.ranks.TeamStats(context.Background(), teamID)
	if err != nil {
		respondError(c, err, "Failed to get team stats", zap.Int("team_id", teamID))
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ScoreboardHandler) GetTopPerformers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	board, err := h.ranks.TopPerformers(context.Background(), limit)
	if err != nil {
		respondError(c, err, "Failed to get top performers")
		return
	}
	c.JSON(http.StatusOK, board)
}

func (h *ScoreboardHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/scoreboard")
	{
		group.GET("/overall", h.GetOverall)
		group.GET("/wave/:wave", h.GetWave)
		group.GET("/team/:teamId", h.GetTeamStats)
		group.GET("/top-performers", h.GetTopPerformers)
	}

	authed := router.Group("/api/scoreboard")
	authed.Use(middlewares.AuthMiddleware(h.tokenService))
	{
		authed.GET("/user/:userId", h.GetUserStats)
	}
}
