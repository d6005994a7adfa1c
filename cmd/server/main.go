package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rankline/backend/internal/api"
	"github.com/rankline/backend/internal/config"
	"github.com/rankline/backend/internal/database"
	"github.com/rankline/backend/internal/match"
	"github.com/rankline/backend/internal/matchmaking"
	"github.com/rankline/backend/internal/migrations"
	"github.com/rankline/backend/internal/presence"
	"github.com/rankline/backend/internal/rating"
	"github.com/rankline/backend/internal/redis"
	"github.com/rankline/backend/internal/repository"
	"github.com/rankline/backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Info("running DB migrations on startup")
		if err := migrations.RunMigrations(cfg.DatabaseURL, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	users := repository.NewUserRepository(db)
	queueRepo := repository.NewMatchmakingRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	// Presence bridge: redis change feed in, websocket fan-out
	publisher := presence.NewPublisher(rdb, log)
	hub := presence.NewHub(log)
	go hub.Run()
	presence.StartSubscriber(context.Background(), rdb, hub, log)

	// Core services
	calc := rating.NewCalculator(cfg.EloKFactor)
	lifecycle := match.NewManager(matchRepo, calc, publisher, cfg.WinThreshold, log)
	mm := matchmaking.NewService(queueRepo, publisher, cfg.PairingMaxRetries, log)

	// Background pairing sweep
	go mm.RunSweeper(context.Background(), time.Duration(cfg.MatchmakerPollSeconds)*time.Second)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, &api.Deps{
		Cfg:         cfg,
		Users:       users,
		Matches:     matchRepo,
		Matchmaking: mm,
		Lifecycle:   lifecycle,
		Hub:         hub,
		Logger:      log,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info("starting rankline server", zap.String("port", port))
	if err := router.Run(":" + port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
