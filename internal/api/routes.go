package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rankline/backend/internal/api/handlers"
	"github.com/rankline/backend/internal/config"
	"github.com/rankline/backend/internal/match"
	"github.com/rankline/backend/internal/matchmaking"
	"github.com/rankline/backend/internal/middleware"
	"github.com/rankline/backend/internal/presence"
	"github.com/rankline/backend/internal/repository"
	"go.uber.org/zap"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	Cfg         *config.Config
	Users       *repository.UserRepository
	Matches     *repository.MatchRepository
	Matchmaking *matchmaking.Service
	Lifecycle   *match.Manager
	Hub         *presence.Hub
	Logger      *zap.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps *Deps) {
	router.Use(middleware.CORSMiddleware(deps.Cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		// Public auth + leaderboard
		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.Register(deps.Users, deps.Cfg, deps.Logger))
			auth.POST("/login", handlers.Login(deps.Users, deps.Cfg, deps.Logger))
		}
		v1.GET("/leaderboard", handlers.Leaderboard(deps.Users, deps.Logger))

		// Everything else requires a session
		authed := v1.Group("")
		authed.Use(handlers.AuthMiddleware(deps.Cfg))
		{
			authed.GET("/me", handlers.GetMe(deps.Users, deps.Logger))
			authed.PUT("/me/settings", handlers.UpdateSettings(deps.Users, deps.Logger))

			mm := authed.Group("/matchmaking")
			{
				mm.POST("/queue", handlers.JoinQueue(deps.Matchmaking, deps.Logger))
				mm.DELETE("/queue", handlers.LeaveQueue(deps.Matchmaking, deps.Logger))
				mm.GET("/status", handlers.QueueStatus(deps.Matchmaking, deps.Logger))
				mm.GET("/ws", handlers.PresenceWS(deps.Hub, deps.Matchmaking, deps.Lifecycle, deps.Logger))
			}

			matches := authed.Group("/matches")
			{
				matches.GET("", handlers.ListMatches(deps.Matches, deps.Logger))
				matches.GET("/:id", handlers.GetMatch(deps.Lifecycle, deps.Logger))
				matches.POST("/:id/score", handlers.RecordScore(deps.Lifecycle, deps.Logger))
				matches.POST("/:id/forfeit", handlers.ForfeitMatch(deps.Lifecycle, deps.Logger))
			}
		}
	}
}
