package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankline/backend/internal/repository"
	"go.uber.org/zap"
)

// Leaderboard returns users ordered by rating.
func Leaderboard(users *repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := queryInt(c, "page", 1)
		pageSize := queryInt(c, "pageSize", 20)

		rows, total, err := users.Leaderboard(c.Request.Context(), page, pageSize)
		if err != nil {
			logger.Error("leaderboard listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leaderboard"})
			return
		}

		entries := make([]gin.H, 0, len(rows))
		rank := (page-1)*pageSize + 1
		for _, u := range rows {
			entries = append(entries, gin.H{
				"rank":         rank,
				"id":           u.ID,
				"login":        u.Login,
				"display_name": u.DisplayName,
				"elo_score":    u.EloScore,
				"wins":         u.Wins,
				"losses":       u.Losses,
			})
			rank++
		}

		c.JSON(http.StatusOK, gin.H{
			"leaderboard": entries,
			"total":       total,
			"page":        page,
			"pageSize":    pageSize,
		})
	}
}
