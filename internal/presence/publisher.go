package presence

import (
	"context"
	"encoding/json"

	"github.com/rankline/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher pushes lifecycle events onto the Redis change feed. It satisfies
// the Notifier interfaces of the matchmaking and match packages. Publishing
// is best-effort: a dropped event is recovered by the status polling
// endpoint within one poll interval.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

func (p *Publisher) MatchFound(ctx context.Context, match *models.Match) {
	p.publish(ctx, Event{Type: EventMatchFound, Match: match})
}

func (p *Publisher) ScoreUpdate(ctx context.Context, match *models.Match) {
	p.publish(ctx, Event{Type: EventScoreUpdate, Match: match})
}

func (p *Publisher) MatchOver(ctx context.Context, match *models.Match) {
	p.publish(ctx, Event{Type: EventMatchOver, Match: match})
}

func (p *Publisher) MatchCancelled(ctx context.Context, match *models.Match, reason string) {
	p.publish(ctx, Event{Type: EventMatchCancelled, Match: match, Reason: reason})
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	if p.rdb == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal presence event", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		p.logger.Error("failed to publish presence event",
			zap.String("type", event.Type), zap.Error(err))
	}
}
