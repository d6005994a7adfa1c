package presence

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartSubscriber consumes the match_events channel and forwards each event
// to both participants' websockets. Runs until ctx is cancelled. Multiple
// service instances may subscribe; each delivers to the clients it holds.
func StartSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub, logger *zap.Logger) {
	pubsub := rdb.Subscribe(ctx, Channel)
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		logger.Info("presence event subscriber started", zap.String("channel", Channel))

		for {
			select {
			case <-ctx.Done():
				logger.Info("presence event subscriber stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warn("invalid presence event payload", zap.Error(err))
					continue
				}
				if event.Match == nil {
					logger.Warn("presence event without match", zap.String("type", event.Type))
					continue
				}

				hub.SendToUser(event.Match.User1ID, event)
				hub.SendToUser(event.Match.User2ID, event)
			}
		}
	}()
}
