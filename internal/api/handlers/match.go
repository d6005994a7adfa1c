package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankline/backend/internal/match"
	"github.com/rankline/backend/internal/repository"
	"go.uber.org/zap"
)

// RecordScore scores one point for the caller on the given match.
func RecordScore(mgr *match.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		matchID := c.Param("id")

		updated, err := mgr.RecordPoint(c.Request.Context(), matchID, userID)
		if err != nil {
			switch {
			case errors.Is(err, match.ErrMatchNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			case errors.Is(err, match.ErrInvalidParticipant):
				c.JSON(http.StatusForbidden, gin.H{"error": "not a match participant"})
			case errors.Is(err, match.ErrNotActive):
				c.JSON(http.StatusConflict, gin.H{"error": "match is not active"})
			default:
				logger.Error("record point failed",
					zap.String("matchId", matchID), zap.Int("userId", userID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record point"})
			}
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

// ForfeitMatch lets a participant abandon their active match.
func ForfeitMatch(mgr *match.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		matchID := c.Param("id")

		mt, err := mgr.Get(c.Request.Context(), matchID)
		if err != nil {
			if errors.Is(err, match.ErrMatchNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			logger.Error("forfeit lookup failed", zap.String("matchId", matchID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !mt.HasParticipant(userID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a match participant"})
			return
		}

		updated, err := mgr.Cancel(c.Request.Context(), matchID, "forfeit")
		if err != nil {
			if errors.Is(err, match.ErrNotActive) {
				c.JSON(http.StatusConflict, gin.H{"error": "match is not active"})
				return
			}
			logger.Error("forfeit failed", zap.String("matchId", matchID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to forfeit"})
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

// GetMatch returns one match by id.
func GetMatch(mgr *match.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID := c.Param("id")

		mt, err := mgr.Get(c.Request.Context(), matchID)
		if err != nil {
			if errors.Is(err, match.ErrMatchNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
				return
			}
			logger.Error("match lookup failed", zap.String("matchId", matchID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, mt)
	}
}

// ListMatches returns paginated match history. Unknown sort columns fall
// back to created_at.
func ListMatches(matches *repository.MatchRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := repository.ListOptions{
			Page:          queryInt(c, "page", 1),
			PageSize:      queryInt(c, "pageSize", 20),
			SortBy:        c.Query("sortBy"),
			SortOrder:     c.Query("sortOrder"),
			OnlyCompleted: c.Query("onlyCompleted") == "true",
		}

		rows, total, err := matches.ListMatches(c.Request.Context(), opts)
		if err != nil {
			logger.Error("match listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list matches"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"matches":  rows,
			"total":    total,
			"page":     opts.Page,
			"pageSize": opts.PageSize,
		})
	}
}
