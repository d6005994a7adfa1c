package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rankline/backend/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrLoginTaken is returned when registration hits the unique login.
	ErrLoginTaken = errors.New("login already taken")
)

const userColumns = `id, login, password_hash, display_name, country, theme,
	elo_score, wins, losses, created_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account with the configured starting rating.
func (r *UserRepository) Create(ctx context.Context, login, passwordHash, displayName string, startingElo int) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (login, password_hash, display_name, elo_score)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns+`
	`, login, passwordHash, displayName, startingElo).StructScan(user)
	if isUniqueViolation(err) {
		return nil, ErrLoginTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE login = $1`, login)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by login: %w", err)
	}
	return user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user %d: %w", id, err)
	}
	return user, nil
}

// UpdateSettings persists the mutable preference fields.
func (r *UserRepository) UpdateSettings(ctx context.Context, id int, displayName, country, theme string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowxContext(ctx, `
		UPDATE users
		SET display_name = $1, country = $2, theme = $3
		WHERE id = $4
		RETURNING `+userColumns+`
	`, displayName, country, theme, id).StructScan(user)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update settings for user %d: %w", id, err)
	}
	return user, nil
}

// Leaderboard returns one page of users ordered by rating, plus the total.
func (r *UserRepository) Leaderboard(ctx context.Context, page, pageSize int) ([]models.User, int, error) {
	page, pageSize = normalizePage(page, pageSize)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY elo_score DESC, wins DESC, id
		LIMIT $1 OFFSET $2
	`, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leaderboard: %w", err)
	}

	return users, total, nil
}
