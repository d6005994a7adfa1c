package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rankline/backend/internal/matchmaking"
	"go.uber.org/zap"
)

// JoinQueue admits the caller into the waiting pool.
func JoinQueue(svc *matchmaking.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		entry, err := svc.Join(c.Request.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, matchmaking.ErrAlreadyQueued):
				c.JSON(http.StatusConflict, gin.H{"error": "already_queued"})
			case errors.Is(err, matchmaking.ErrAlreadyInMatch):
				// Hand the caller their live match so the client can redirect
				// to it instead of retrying the join.
				status, serr := svc.Status(c.Request.Context(), userID)
				if serr != nil || status.Match == nil {
					c.JSON(http.StatusConflict, gin.H{"error": "already_in_match"})
					return
				}
				c.JSON(http.StatusConflict, gin.H{"error": "already_in_match", "match": status.Match})
			default:
				logger.Error("queue join failed", zap.Int("userId", userID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join queue"})
			}
			return
		}

		// The greedy pairing pass may have consumed the entry already; report
		// the authoritative state alongside the created entry.
		status, err := svc.Status(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusCreated, gin.H{"queue_entry": entry})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"queue_entry": entry,
			"state":       status.State,
			"match":       status.Match,
		})
	}
}

// LeaveQueue removes the caller's queue entry. not_found is a success (the
// caller already left or got paired); conflict means a pairing attempt holds
// the entry and the caller should retry shortly.
func LeaveQueue(svc *matchmaking.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		result, err := svc.Leave(c.Request.Context(), userID)
		if err != nil {
			logger.Error("queue leave failed", zap.Int("userId", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave queue"})
			return
		}

		if result == matchmaking.RemoveConflict {
			c.JSON(http.StatusConflict, gin.H{"result": string(result)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": string(result)})
	}
}

// QueueStatus reports whether the caller is idle, waiting or in a match.
// Polling this endpoint is the fallback notification path for clients
// without a websocket.
func QueueStatus(svc *matchmaking.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		status, err := svc.Status(c.Request.Context(), userID)
		if err != nil {
			logger.Error("queue status failed", zap.Int("userId", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read status"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"state":       status.State,
			"in_queue":    status.State == matchmaking.StateWaiting,
			"in_match":    status.State == matchmaking.StateInMatch,
			"queue_entry": status.QueueEntry,
			"match":       status.Match,
		})
	}
}
