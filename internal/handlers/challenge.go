package handlers

import (
	"context"
	"net/http"
	"strconv"

	"heistctf/internal/logger"
	"heistctf/internal/middlewares"
	"heistctf/internal/models"
	"heistctf/internal/repositories"
	"heistctf/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ChallengeHandler struct {
	challengeRepo repositories.ChallengeRepository
	ledger        repositories.SubmissionLedger
	submissions   *services.SubmissionService
	tokenService  *services.TokenService
}

func NewChallengeHandler(challengeRepo repositories.ChallengeRepository, ledger repositories.SubmissionLedger,
	submissions *services.SubmissionService, tokenService *services.TokenService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeRepo: challengeRepo,
		ledger:        ledger,
		submissions:   submissions,
		tokenService:  tokenService,
	}
}

func (h *ChallengeHandler) GetChallenges(c *gin.Context) {
	challenges, err := h.challengeRepo.List(context.Background())
	if err != nil {
		respondError(c, err, "Failed to list challenges")
		return
	}
	c.JSON(http.StatusOK, challenges)
}

func (h *ChallengeHandler) GetChallengeByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	challenge, err := h.challengeRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get challenge", zap.Int("challenge_id", id))
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// SubmitFlag runs the whole attempt through the submission service. A
// wrong flag still answers 200 so clients can render attempt feedback
// without special-casing errors.
func (h *ChallengeHandler) SubmitFlag(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flag format."})
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), userID, id, req.Flag, c.ClientIP())
	if err != nil {
		respondError(c, err, "Failed to process submission",
			zap.Int("user_id", userID),
			zap.Int("challenge_id", id))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ChallengeHandler) GetHint(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}
	hintIndex, err := strconv.Atoi(c.Param("hintIndex"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hint index"})
		return
	}

	result, err := h.submissions.UnlockHint(c.Request.Context(), userID, id, hintIndex)
	if err != nil {
		respondError(c, err, "Failed to unlock hint",
			zap.Int("user_id", userID),
			zap.Int("challenge_id", id))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ChallengeHandler) GetByCategory(c *gin.Context) {
	category := c.Param("category")
	if !models.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}
	h.filtered(c, models.ChallengeFilter{Category: category, ActiveOnly: true})
}

func (h *ChallengeHandler) GetByDifficulty(c *gin.Context) {
	difficulty := c.Param("difficulty")
	if !models.ValidDifficulty(difficulty) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid difficulty"})
		return
	}
	h.filtered(c, models.ChallengeFilter{Difficulty: difficulty, ActiveOnly: true})
}

func (h *ChallengeHandler) GetByWave(c *gin.Context) {
	wave := models.Wave(c.Param("wave"))
	if !wave.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wave. Must be red, blue, or purple."})
		return
	}
	h.filtered(c, models.ChallengeFilter{Wave: wave, ActiveOnly: true})
}

func (h *ChallengeHandler) filtered(c *gin.Context, f models.ChallengeFilter) {
	challenges, err := h.challengeRepo.Filter(context.Background(), f)
	if err != nil {
		respondError(c, err, "Failed to filter challenges")
		return
	}
	c.JSON(http.StatusOK, challenges)
}

func (h *ChallengeHandler) GetStats(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	challenge, err := h.challengeRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get challenge", zap.Int("challenge_id", id))
		return
	}

	solvers, err := h.challengeRepo.Solvers(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get solvers", zap.Int("challenge_id", id))
		return
	}

	solveRate := 0.0
	if challenge.Attempts > 0 {
		solveRate = float64(challenge.Solves) / float64(challenge.Attempts) * 100
	}

	c.JSON(http.StatusOK, models.ChallengeStats{
		Title:      challenge.Title,
		Category:   challenge.Category,
		Difficulty: challenge.Difficulty,
		Points:     challenge.Points,
		Solves:     challenge.Solves,
		Attempts:   challenge.Attempts,
		SolveRate:  solveRate,
		SolvedBy:   solvers,
	})
}

func (h *ChallengeHandler) GetMySubmissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	challenge, err := h.challengeRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get challenge", zap.Int("challenge_id", id))
		return
	}

	history, err := h.submissions.History(context.Background(), userID, challenge)
	if err != nil {
		respondError(c, err, "Failed to get submission history",
			zap.Int("user_id", userID),
			zap.Int("challenge_id", id))
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	var req models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	ch := models.Challenge{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
		Wave:          req.Wave,
		Flag:          req.Flag,
		Points:        req.Points,
		DynamicPoints: req.DynamicPoints,
		MinPoints:     req.MinPoints,
		MaxPoints:     req.MaxPoints,
		MaxAttempts:   req.MaxAttempts,
		PenaltyPoints: req.PenaltyPoints,
		IsActive:      active,
	}
	if userID, ok := currentUserID(c); ok {
		ch.CreatedBy = &userID
	}

	if err := h.challengeRepo.Create(context.Background(), &ch, req.Hints); err != nil {
		respondError(c, err, "Failed to create challenge")
		return
	}

	logger.Log.Info("Challenge created",
		zap.Int("challenge_id", ch.ID),
		zap.String("title", ch.Title),
		zap.String("wave", string(ch.Wave)))
	c.JSON(http.StatusCreated, ch)
}

func (h *ChallengeHandler) UpdateChallenge(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	var req models.CreateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.challengeRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get challenge", zap.Int("challenge_id", id))
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.Category = req.Category
	existing.Difficulty = req.Difficulty
	existing.Wave = req.Wave
	existing.Flag = req.Flag
	existing.Points = req.Points
	existing.DynamicPoints = req.DynamicPoints
	existing.MinPoints = req.MinPoints
	existing.MaxPoints = req.MaxPoints
	existing.MaxAttempts = req.MaxAttempts
	existing.PenaltyPoints = req.PenaltyPoints
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := h.challengeRepo.Update(context.Background(), existing); err != nil {
		respondError(c, err, "Failed to update challenge", zap.Int("challenge_id", id))
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (h *ChallengeHandler) DeleteChallenge(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	if err := h.challengeRepo.Delete(context.Background(), id); err != nil {
		respondError(c, err, "Failed to delete challenge", zap.Int("challenge_id", id))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Challenge deleted successfully"})
}

func (h *ChallengeHandler) GetSubmissions(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}

	challenge, err := h.challengeRepo.GetByID(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get challenge", zap.Int("challenge_id", id))
		return
	}

	subs, err := h.ledger.ChallengeSubmissions(context.Background(), id)
	if err != nil {
		respondError(c, err, "Failed to get submissions", zap.Int("challenge_id", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge_title": challenge.Title,
		"submissions":     subs,
	})
}

func (h *ChallengeHandler) ResetAttempts(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid challenge ID"})
		return
	}
	userID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	attempts, err := h.submissions.ResetAttempts(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "Failed to reset attempts",
			zap.Int("user_id", userID),
			zap.Int("challenge_id", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "User attempts reset successfully",
		"attempts": attempts,
	})
}

func (h *ChallengeHandler) BulkStatus(c *gin.Context) {
	var req models.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "challenge_ids must be an array"})
		return
	}

	modified, err := h.challengeRepo.BulkSetActive(context.Background(), req.ChallengeIDs, req.IsActive)
	if err != nil {
		respondError(c, err, "Failed to bulk update challenge status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Challenge status updated",
		"modified_count": modified,
	})
}

func (h *ChallengeHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/challenges")
	group.Use(middlewares.OptionalAuthMiddleware(h.tokenService))
	{
		group.GET("", h.GetChallenges)
		group.GET("/:id", h.GetChallengeByID)
		group.GET("/:id/stats", h.GetStats)
		group.GET("/category/:category", h.GetByCategory)
		group.GET("/difficulty/:difficulty", h.GetByDifficulty)
		group.GET("/wave/:wave", h.GetByWave)
	}

	authed := router.Group("/api/challenges")
	authed.Use(middlewares.AuthMiddleware(h.tokenService))
	{
		authed.POST("/:id/submit", h.SubmitFlag)
		authed.GET("/:id/hint/:hintIndex", h.GetHint)
		authed.GET("/:id/my-submissions", h.GetMySubmissions)
	}

	admin := router.Group("/api/challenges")
	admin.Use(middlewares.AuthMiddleware(h.tokenService), middlewares.RequireAdmin())
	{
		admin.POST("", h.CreateChallenge)
		admin.PUT("/:id", h.UpdateChallenge)
		admin.DELETE("/:id", h.DeleteChallenge)
		admin.GET("/:id/submissions", h.GetSubmissions)
		admin.POST("/:id/reset-attempts/:userId", h.ResetAttempts)
		admin.POST("/bulk/status", h.BulkStatus)
	}
}
