package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rankline/backend/internal/matchmaking"
	"github.com/rankline/backend/internal/models"
)

// MatchmakingRepository implements matchmaking.Store on Postgres. Pairing
// relies on row-level locking (FOR UPDATE SKIP LOCKED) so concurrent
// attempts never consume the same queue entry.
type MatchmakingRepository struct {
	db *sqlx.DB
}

func NewMatchmakingRepository(db *sqlx.DB) *MatchmakingRepository {
	return &MatchmakingRepository{db: db}
}

// Enqueue inserts a queue entry unless the user already holds a live match.
// The live-match check and the insert run as one statement; the unique
// constraint on user_id rejects duplicate entries.
func (r *MatchmakingRepository) Enqueue(ctx context.Context, userID int) (*models.QueueEntry, error) {
	query := `
		INSERT INTO matchmaking_queue (user_id)
		SELECT $1
		WHERE NOT EXISTS (
			SELECT 1 FROM matches
			WHERE status IN ` + liveStatuses + `
			  AND (user_1_id = $1 OR user_2_id = $1)
		)
		RETURNING id, user_id, joined_at
	`

	entry := &models.QueueEntry{}
	err := r.db.QueryRowxContext(ctx, query, userID).StructScan(entry)
	if err == sql.ErrNoRows {
		return nil, matchmaking.ErrAlreadyInMatch
	}
	if isUniqueViolation(err) {
		return nil, matchmaking.ErrAlreadyQueued
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue user %d: %w", userID, err)
	}

	return entry, nil
}

// RemoveEntry deletes the user's queue entry. An entry that exists but is
// row-locked by an in-flight pairing attempt reports conflict instead of
// silently vanishing mid-pairing.
func (r *MatchmakingRepository) RemoveEntry(ctx context.Context, userID int) (matchmaking.RemoveResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return matchmaking.RemoveNotFound, fmt.Errorf("failed to begin leave transaction: %w", err)
	}
	defer tx.Rollback()

	var entryID int
	err = tx.GetContext(ctx, &entryID, `SELECT id FROM matchmaking_queue WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return matchmaking.RemoveNotFound, nil
	}
	if err != nil {
		return matchmaking.RemoveNotFound, fmt.Errorf("failed to look up queue entry: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM matchmaking_queue
		WHERE id IN (
			SELECT id FROM matchmaking_queue
			WHERE user_id = $1
			FOR UPDATE SKIP LOCKED
		)
	`, userID)
	if err != nil {
		return matchmaking.RemoveNotFound, fmt.Errorf("failed to delete queue entry: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		// Entry exists but is claimed by a pairing transaction.
		return matchmaking.RemoveConflict, nil
	}

	if err := tx.Commit(); err != nil {
		return matchmaking.RemoveNotFound, fmt.Errorf("failed to commit leave: %w", err)
	}

	return matchmaking.RemoveRemoved, nil
}

// EntryForUser returns the user's queue entry, or nil when absent.
func (r *MatchmakingRepository) EntryForUser(ctx context.Context, userID int) (*models.QueueEntry, error) {
	entry := &models.QueueEntry{}
	err := r.db.GetContext(ctx, entry,
		`SELECT id, user_id, joined_at FROM matchmaking_queue WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue entry: %w", err)
	}
	return entry, nil
}

// ActiveMatchForUser returns the user's live match, or nil.
func (r *MatchmakingRepository) ActiveMatchForUser(ctx context.Context, userID int) (*models.Match, error) {
	match := &models.Match{}
	err := r.db.GetContext(ctx, match, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status IN `+liveStatuses+`
		  AND (user_1_id = $1 OR user_2_id = $1)
		LIMIT 1
	`, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active match: %w", err)
	}
	return match, nil
}

// PairOldest claims the two oldest waiting entries and converts them into
// one active match in a single transaction: re-validate (the locked rows
// still exist by definition), delete both, insert the match. SKIP LOCKED
// keeps concurrent sweeps from blocking on each other's claims.
func (r *MatchmakingRepository) PairOldest(ctx context.Context) (*models.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin pairing transaction: %w", err)
	}
	defer tx.Rollback()

	var entries []models.QueueEntry
	err = tx.SelectContext(ctx, &entries, `
		SELECT id, user_id, joined_at
		FROM matchmaking_queue
		ORDER BY joined_at, id
		FOR UPDATE SKIP LOCKED
		LIMIT 2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to claim queue entries: %w", err)
	}
	if len(entries) < 2 {
		return nil, matchmaking.ErrNotEnoughWaiting
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM matchmaking_queue WHERE id = ANY($1)`,
		pq.Array([]int{entries[0].ID, entries[1].ID}))
	if err != nil {
		return nil, fmt.Errorf("failed to consume queue entries: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows != 2 {
		return nil, matchmaking.ErrPairingConflict
	}

	match := &models.Match{}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO matches (id, user_1_id, user_2_id, status)
		VALUES ($1, $2, $3, 'active')
		RETURNING `+matchColumns+`
	`, uuid.NewString(), entries[0].UserID, entries[1].UserID).StructScan(match)
	if isUniqueViolation(err) {
		// One of the users already holds a live match (partial unique index).
		return nil, matchmaking.ErrPairingConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return nil, matchmaking.ErrPairingConflict
		}
		return nil, fmt.Errorf("failed to commit pairing: %w", err)
	}

	return match, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "40001"
	}
	return false
}
