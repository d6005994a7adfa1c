package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rankline/backend/internal/match"
	"github.com/rankline/backend/internal/matchmaking"
	"github.com/rankline/backend/internal/presence"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS/websocket middleware.
		return true
	},
}

// PresenceWS upgrades the connection and attaches the caller to the event
// feed. A dropped socket is treated as abandonment: if the user holds an
// active match it gets cancelled, which is the disconnect signal the
// lifecycle manager consumes.
func PresenceWS(hub *presence.Hub, svc *matchmaking.Service, mgr *match.Manager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Int("userId", userID), zap.Error(err))
			return
		}

		onDisconnect := func(userID int) {
			ctx := context.Background()
			status, err := svc.Status(ctx, userID)
			if err != nil || status.Match == nil {
				return
			}
			if _, err := mgr.Cancel(ctx, status.Match.ID, "disconnect"); err != nil &&
				!errors.Is(err, match.ErrNotActive) {
				logger.Error("failed to cancel match on disconnect",
					zap.Int("userId", userID),
					zap.String("matchId", status.Match.ID),
					zap.Error(err))
			}
		}

		client := presence.NewClient(hub, conn, userID, logger, onDisconnect)
		client.Start()
	}
}
