package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"heistctf/configs"
	"heistctf/internal/dbs"
	"heistctf/internal/handlers"
	"heistctf/internal/logger"
	"heistctf/internal/middlewares"
	"heistctf/internal/notifier"
	"heistctf/internal/repositories"
	"heistctf/internal/services"

	"github.com/gin-gonic/gin"
)

func StartGinServer() {
	logger.InitLogger()
	defer logger.SyncLogger()

	config := configs.LoadConfig()

	db, err := dbs.Init(config)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := dbs.InitRedis(ctx, config.RedisAddr); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer dbs.CloseRedis()

	cache := services.NewRedisCache(dbs.RedisClient)
	tokenService := services.NewTokenService(config.JWTSecret)

	userRepo := repositories.NewUserRepository(db, cache)
	challengeRepo := repositories.NewChallengeRepository(db)
	teamRepo := repositories.NewTeamRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	ledger := repositories.NewSubmissionLedger(db)

	scoreboardNotifier := services.NewScoreboardNotifier(dbs.RedisClient)
	submissionService := services.NewSubmissionService(ledger, scoreboardNotifier)
	rankService := services.NewRankService(userRepo, userRepo, teamRepo)

	hub := notifier.NewHub()
	pool := notifier.NewPool(config.NumberOfWorkers, dbs.RedisClient,
		services.ScoreboardStream, "broadcasters", hub)
	if err := pool.Start(ctx); err != nil {
		logger.Log.Error("Failed starting notifier pool")
		log.Fatalf("failed to start notifier pool: %v", err)
	}
	defer pool.Stop()

	snapshotInterval := time.Duration(config.SnapshotIntervalSec) * time.Second
	snapshots := services.NewSnapshotService(rankService, cache, teamRepo, snapshotInterval)
	sched, err := snapshots.Start()
	if err != nil {
		log.Fatalf("failed to start snapshot scheduler: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	router := gin.New()
	router.Use(middlewares.ErrorHandlerMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	handlers.NewAuthHandler(userRepo, tokenService).RegisterRoutes(router)
	handlers.NewChallengeHandler(challengeRepo, ledger, submissionService, tokenService).RegisterRoutes(router)
	handlers.NewScoreboardHandler(rankService, cache, tokenService).RegisterRoutes(router)
	handlers.NewUserHandler(userRepo, tokenService).RegisterRoutes(router)
	handlers.NewTeamHandler(teamRepo, userRepo, tokenService).RegisterRoutes(router)
	handlers.NewMessageHandler(messageRepo, userRepo, tokenService).RegisterRoutes(router)
	handlers.NewEventHandler(hub).RegisterRoutes(router)

	port := ":" + config.ServerPort
	log.Printf("Starting server on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
