package matchmaking

import (
	"context"
	"errors"

	"github.com/rankline/backend/internal/models"
	"go.uber.org/zap"
)

// RemoveResult is the tri-state outcome of Leave.
type RemoveResult string

const (
	RemoveRemoved  RemoveResult = "removed"
	RemoveNotFound RemoveResult = "not_found"
	RemoveConflict RemoveResult = "conflict"
)

// User state as reported by Status. The match table is authoritative: a user
// with a live match is in_match even if a stray queue row exists.
const (
	StateIdle    = "idle"
	StateWaiting = "waiting"
	StateInMatch = "in_match"
)

// UserStatus is the answer to "where is this user right now".
type UserStatus struct {
	State      string             `json:"state"`
	QueueEntry *models.QueueEntry `json:"queue_entry,omitempty"`
	Match      *models.Match      `json:"match,omitempty"`
}

// Store is the persistence surface the service needs. The production
// implementation is repository.MatchmakingRepository; tests use an
// in-memory fake.
type Store interface {
	// Enqueue inserts a queue entry for the user. Returns ErrAlreadyQueued
	// if a live entry exists and ErrAlreadyInMatch if the user holds a live
	// match (both checked in the same statement).
	Enqueue(ctx context.Context, userID int) (*models.QueueEntry, error)

	// RemoveEntry deletes the user's queue entry. Reports conflict when the
	// entry exists but is locked by an in-flight pairing attempt.
	RemoveEntry(ctx context.Context, userID int) (RemoveResult, error)

	// EntryForUser returns the user's queue entry, or nil when none exists.
	EntryForUser(ctx context.Context, userID int) (*models.QueueEntry, error)

	// ActiveMatchForUser returns the user's live match, or nil.
	ActiveMatchForUser(ctx context.Context, userID int) (*models.Match, error)

	// PairOldest atomically converts the two oldest queue entries into one
	// active match: re-validate, delete both entries, insert the match, all
	// in one unit of work. Returns ErrNotEnoughWaiting or ErrPairingConflict.
	PairOldest(ctx context.Context) (*models.Match, error)
}

// Notifier pushes pairing results to the presence bridge.
type Notifier interface {
	MatchFound(ctx context.Context, match *models.Match)
}

// Service owns queue admission and drives the pairing engine.
type Service struct {
	store      Store
	notifier   Notifier
	logger     *zap.Logger
	maxRetries int
}

func NewService(store Store, notifier Notifier, maxRetries int, logger *zap.Logger) *Service {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Service{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Join admits the user into the waiting pool and greedily attempts a pairing
// pass. Pairing failures are not surfaced to the joiner: the entry stays
// queued and the sweep worker picks it up.
func (s *Service) Join(ctx context.Context, userID int) (*models.QueueEntry, error) {
	entry, err := s.store.Enqueue(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user joined matchmaking queue",
		zap.Int("userId", userID),
		zap.Int("queueId", entry.ID))

	if _, err := s.TryPair(ctx); err != nil &&
		!errors.Is(err, ErrNotEnoughWaiting) && !errors.Is(err, ErrPairingUnavailable) {
		s.logger.Error("greedy pairing attempt failed", zap.Error(err))
	}

	return entry, nil
}

// Leave removes the user's queue entry. A missing entry is not an error (the
// user already left or got paired); a locked entry reports conflict so the
// caller can retry after the pairing attempt settles.
func (s *Service) Leave(ctx context.Context, userID int) (RemoveResult, error) {
	result, err := s.store.RemoveEntry(ctx, userID)
	if err != nil {
		return RemoveNotFound, err
	}

	s.logger.Info("queue leave",
		zap.Int("userId", userID),
		zap.String("result", string(result)))

	return result, nil
}

// Status derives the user's tagged state, checking the match table first.
func (s *Service) Status(ctx context.Context, userID int) (*UserStatus, error) {
	match, err := s.store.ActiveMatchForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return &UserStatus{State: StateInMatch, Match: match}, nil
	}

	entry, err := s.store.EntryForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return &UserStatus{State: StateWaiting, QueueEntry: entry}, nil
	}

	return &UserStatus{State: StateIdle}, nil
}

// TryPair runs one bounded pairing attempt. Conflicts are retried with a
// fresh read; exhausting the budget surfaces ErrPairingUnavailable and
// leaves the queue untouched.
func (s *Service) TryPair(ctx context.Context) (*models.Match, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		match, err := s.store.PairOldest(ctx)
		if err == nil {
			s.logger.Info("match paired",
				zap.String("matchId", match.ID),
				zap.Int("user1", match.User1ID),
				zap.Int("user2", match.User2ID))
			if s.notifier != nil {
				s.notifier.MatchFound(ctx, match)
			}
			return match, nil
		}

		if errors.Is(err, ErrNotEnoughWaiting) {
			return nil, err
		}

		if errors.Is(err, ErrPairingConflict) {
			s.logger.Debug("pairing conflict, resampling",
				zap.Int("attempt", attempt),
				zap.Int("maxRetries", s.maxRetries))
			continue
		}

		return nil, err
	}

	s.logger.Warn("pairing retries exhausted", zap.Int("maxRetries", s.maxRetries))
	return nil, ErrPairingUnavailable
}
