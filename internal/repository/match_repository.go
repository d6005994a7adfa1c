package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rankline/backend/internal/match"
	"github.com/rankline/backend/internal/models"
)

const matchColumns = `id, user_1_id, user_2_id, user_1_score, user_2_score,
	winner_id, status, cancel_reason, created_at, finished_at`

// liveStatuses is the SQL tuple of non-terminal match states, kept in sync
// with the models constants.
var liveStatuses = fmt.Sprintf("('%s', '%s')", models.MatchStatusPending, models.MatchStatusActive)

// MatchRepository implements match.Store on Postgres. Completion and rating
// settlement commit in one transaction, guarded by the active-state check on
// the terminal transition.
type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// GetMatch returns the match by id.
func (r *MatchRepository) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	mt := &models.Match{}
	err := r.db.GetContext(ctx, mt, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, match.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read match %s: %w", id, err)
	}
	return mt, nil
}

// RecordPoint increments the scorer's counter and, when the win threshold is
// reached, finishes the match and applies the rating deltas in the same
// transaction. A match that is already terminal cannot transition again, so
// the rating write happens at most once per match.
func (r *MatchRepository) RecordPoint(ctx context.Context, matchID string, scorerID, winThreshold int, settle match.SettleFunc) (*models.Match, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin score transaction: %w", err)
	}
	defer tx.Rollback()

	mt := &models.Match{}
	err = tx.QueryRowxContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, matchID).StructScan(mt)
	if err == sql.ErrNoRows {
		return nil, match.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match %s: %w", matchID, err)
	}

	if mt.Status != models.MatchStatusActive {
		return nil, match.ErrNotActive
	}
	if !mt.HasParticipant(scorerID) {
		return nil, match.ErrInvalidParticipant
	}

	var newScore int
	if scorerID == mt.User1ID {
		err = tx.GetContext(ctx, &newScore,
			`UPDATE matches SET user_1_score = user_1_score + 1 WHERE id = $1 RETURNING user_1_score`, matchID)
		mt.User1Score = newScore
	} else {
		err = tx.GetContext(ctx, &newScore,
			`UPDATE matches SET user_2_score = user_2_score + 1 WHERE id = $1 RETURNING user_2_score`, matchID)
		mt.User2Score = newScore
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment score: %w", err)
	}

	if newScore < winThreshold {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit score: %w", err)
		}
		return mt, nil
	}

	// Threshold reached: finish the match and settle ratings atomically.
	// The status guard is the exactly-once barrier for settlement.
	var finishedAt sql.NullTime
	err = tx.GetContext(ctx, &finishedAt, `
		UPDATE matches
		SET status = 'finished', winner_id = $1, finished_at = NOW()
		WHERE id = $2 AND status = 'active'
		RETURNING finished_at
	`, scorerID, matchID)
	if err == sql.ErrNoRows {
		return nil, match.ErrNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finish match: %w", err)
	}

	loserID := mt.OpponentOf(scorerID)
	winnerElo, loserElo, err := lockRatings(ctx, tx, scorerID, loserID)
	if err != nil {
		return nil, err
	}

	winnerDelta, loserDelta := settle(winnerElo, loserElo)

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET elo_score = elo_score + $1, wins = wins + 1 WHERE id = $2`,
		winnerDelta, scorerID); err != nil {
		return nil, fmt.Errorf("failed to apply winner rating: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET elo_score = elo_score + $1, losses = losses + 1 WHERE id = $2`,
		loserDelta, loserID); err != nil {
		return nil, fmt.Errorf("failed to apply loser rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	mt.Status = models.MatchStatusFinished
	mt.WinnerID = sql.NullInt64{Int64: int64(scorerID), Valid: true}
	mt.FinishedAt = finishedAt
	return mt, nil
}

// lockRatings reads both users' current elo under row locks, always locking
// in ascending id order so concurrent completions cannot deadlock.
func lockRatings(ctx context.Context, tx *sqlx.Tx, winnerID, loserID int) (winnerElo, loserElo int, err error) {
	rows, err := tx.QueryxContext(ctx,
		`SELECT id, elo_score FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`,
		winnerID, loserID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to lock user ratings: %w", err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var id, elo int
		if err := rows.Scan(&id, &elo); err != nil {
			return 0, 0, fmt.Errorf("failed to scan user rating: %w", err)
		}
		if id == winnerID {
			winnerElo = elo
		} else {
			loserElo = elo
		}
		found++
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("failed to iterate user ratings: %w", err)
	}
	if found != 2 {
		return 0, 0, fmt.Errorf("expected 2 participants, locked %d", found)
	}
	return winnerElo, loserElo, nil
}

// CancelMatch abandons a live match. Ratings are never touched and
// finished_at stays NULL; cancelled is terminal.
func (r *MatchRepository) CancelMatch(ctx context.Context, matchID, reason string) (*models.Match, error) {
	mt := &models.Match{}
	err := r.db.QueryRowxContext(ctx, `
		UPDATE matches
		SET status = 'cancelled', cancel_reason = $1
		WHERE id = $2 AND status IN `+liveStatuses+`
		RETURNING `+matchColumns+`
	`, reason, matchID).StructScan(mt)
	if err == sql.ErrNoRows {
		// Either unknown id or already terminal; disambiguate for the caller.
		if _, gerr := r.GetMatch(ctx, matchID); gerr != nil {
			return nil, gerr
		}
		return nil, match.ErrNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel match %s: %w", matchID, err)
	}
	return mt, nil
}

// ListOptions controls match-history pagination and ordering.
type ListOptions struct {
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
	OnlyCompleted bool
}

// matchSortColumns is the allow-list for history sorting. Anything else
// silently falls back to created_at.
var matchSortColumns = map[string]bool{
	"id":           true,
	"user_1_id":    true,
	"user_2_id":    true,
	"winner_id":    true,
	"created_at":   true,
	"finished_at":  true,
	"user_1_score": true,
	"user_2_score": true,
}

// SortColumn maps a requested sort key onto the allow-list.
func SortColumn(requested string) string {
	if matchSortColumns[requested] {
		return requested
	}
	return "created_at"
}

// SortOrder normalizes the requested direction; default is descending.
func SortOrder(requested string) string {
	if strings.EqualFold(requested, "asc") {
		return "ASC"
	}
	return "DESC"
}

// normalizePage bounds pagination inputs. Page size defaults to 20 and is
// capped at 100.
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ListMatches returns one page of match history plus the total row count.
func (r *MatchRepository) ListMatches(ctx context.Context, opts ListOptions) ([]models.Match, int, error) {
	opts.Page, opts.PageSize = normalizePage(opts.Page, opts.PageSize)

	where := ""
	if opts.OnlyCompleted {
		where = fmt.Sprintf("WHERE status = '%s'", models.MatchStatusFinished)
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM matches `+where); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM matches
		%s
		ORDER BY %s %s
		LIMIT $1 OFFSET $2
	`, matchColumns, where, SortColumn(opts.SortBy), SortOrder(opts.SortOrder))

	var matches []models.Match
	if err := r.db.SelectContext(ctx, &matches, query, opts.PageSize, (opts.Page-1)*opts.PageSize); err != nil {
		return nil, 0, fmt.Errorf("failed to list matches: %w", err)
	}

	return matches, total, nil
}
