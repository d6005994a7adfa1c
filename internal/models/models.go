package models

import (
	"database/sql"
	"time"
)

// Match status values. Matches are inserted as active (pairing activates
// immediately); pending is accepted for forward compatibility.
const (
	MatchStatusPending   = "pending"
	MatchStatusActive    = "active"
	MatchStatusFinished  = "finished"
	MatchStatusCancelled = "cancelled"
)

// User represents an account on the ladder
type User struct {
	ID           int       `db:"id" json:"id"`
	Login        string    `db:"login" json:"login"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	Country      string    `db:"country" json:"country,omitempty"`
	Theme        string    `db:"theme" json:"theme,omitempty"`
	EloScore     int       `db:"elo_score" json:"elo_score"`
	Wins         int       `db:"wins" json:"wins"`
	Losses       int       `db:"losses" json:"losses"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// QueueEntry represents a user waiting to be paired. Presence of a row
// means "waiting"; the row is deleted on leave or on pairing.
type QueueEntry struct {
	ID       int       `db:"id" json:"id"`
	UserID   int       `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Match represents a 1v1 match between two users
type Match struct {
	ID           string         `db:"id" json:"id"`
	User1ID      int            `db:"user_1_id" json:"user_1_id"`
	User2ID      int            `db:"user_2_id" json:"user_2_id"`
	User1Score   int            `db:"user_1_score" json:"user_1_score"`
	User2Score   int            `db:"user_2_score" json:"user_2_score"`
	WinnerID     sql.NullInt64  `db:"winner_id" json:"winner_id,omitempty"`
	Status       string         `db:"status" json:"status"`
	CancelReason sql.NullString `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   sql.NullTime   `db:"finished_at" json:"finished_at,omitempty"`
}

// HasParticipant reports whether userID is one of the two players.
func (m *Match) HasParticipant(userID int) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// OpponentOf returns the other participant's id. Callers must check
// HasParticipant first.
func (m *Match) OpponentOf(userID int) int {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// IsTerminal reports whether the match can no longer change.
func (m *Match) IsTerminal() bool {
	return m.Status == MatchStatusFinished || m.Status == MatchStatusCancelled
}
