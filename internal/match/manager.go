package match

import (
	"context"

	"github.com/rankline/backend/internal/models"
	"github.com/rankline/backend/internal/rating"
	"go.uber.org/zap"
)

// SettleFunc computes the signed rating deltas for a decided match. It is
// invoked by the store inside the completion transaction so the rating write
// commits or rolls back together with the terminal state transition.
type SettleFunc func(winnerElo, loserElo int) (winnerDelta, loserDelta int)

// Store is the persistence surface for the lifecycle manager. The production
// implementation is repository.MatchRepository.
type Store interface {
	// GetMatch returns the match or ErrMatchNotFound.
	GetMatch(ctx context.Context, id string) (*models.Match, error)

	// RecordPoint increments the scorer's counter by one inside a single
	// transaction. When the new score reaches winThreshold the same
	// transaction sets status=finished, winner_id and finished_at and applies
	// the deltas produced by settle to both users. The active-state guard on
	// the terminal transition makes settlement exactly-once. Returns the
	// updated match, or ErrMatchNotFound / ErrNotActive / ErrInvalidParticipant.
	RecordPoint(ctx context.Context, matchID string, scorerID, winThreshold int, settle SettleFunc) (*models.Match, error)

	// CancelMatch transitions an active match to cancelled without touching
	// ratings. Returns ErrNotActive when the match is already terminal.
	CancelMatch(ctx context.Context, matchID, reason string) (*models.Match, error)
}

// Notifier pushes lifecycle changes to the presence bridge.
type Notifier interface {
	ScoreUpdate(ctx context.Context, match *models.Match)
	MatchOver(ctx context.Context, match *models.Match)
	MatchCancelled(ctx context.Context, match *models.Match, reason string)
}

// Manager drives a match through active → finished/cancelled and triggers
// rating settlement exactly once per finished match.
type Manager struct {
	store        Store
	calc         *rating.Calculator
	notifier     Notifier
	logger       *zap.Logger
	winThreshold int
}

func NewManager(store Store, calc *rating.Calculator, notifier Notifier, winThreshold int, logger *zap.Logger) *Manager {
	if winThreshold < 1 {
		winThreshold = 1
	}
	return &Manager{
		store:        store,
		calc:         calc,
		notifier:     notifier,
		logger:       logger,
		winThreshold: winThreshold,
	}
}

// Get returns the match by id.
func (m *Manager) Get(ctx context.Context, matchID string) (*models.Match, error) {
	return m.store.GetMatch(ctx, matchID)
}

// RecordPoint scores one point for scorerID. Scores are monotonic counters;
// there is no decrement. Reaching the win threshold finishes the match and
// settles ratings in the same transaction.
func (m *Manager) RecordPoint(ctx context.Context, matchID string, scorerID int) (*models.Match, error) {
	updated, err := m.store.RecordPoint(ctx, matchID, scorerID, m.winThreshold, m.calc.Deltas)
	if err != nil {
		return nil, err
	}

	if updated.Status == models.MatchStatusFinished {
		m.logger.Info("match finished",
			zap.String("matchId", updated.ID),
			zap.Int64("winnerId", updated.WinnerID.Int64),
			zap.Int("score1", updated.User1Score),
			zap.Int("score2", updated.User2Score))
		if m.notifier != nil {
			m.notifier.MatchOver(ctx, updated)
		}
		return updated, nil
	}

	if m.notifier != nil {
		m.notifier.ScoreUpdate(ctx, updated)
	}
	return updated, nil
}

// Cancel abandons an active match (forfeit or disconnect). No rating
// settlement; both participants drop back to idle and are not re-queued.
func (m *Manager) Cancel(ctx context.Context, matchID, reason string) (*models.Match, error) {
	updated, err := m.store.CancelMatch(ctx, matchID, reason)
	if err != nil {
		return nil, err
	}

	m.logger.Info("match cancelled",
		zap.String("matchId", updated.ID),
		zap.String("reason", reason))
	if m.notifier != nil {
		m.notifier.MatchCancelled(ctx, updated, reason)
	}
	return updated, nil
}
