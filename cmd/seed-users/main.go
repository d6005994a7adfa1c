package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rankline/backend/internal/config"
	"github.com/rankline/backend/internal/database"
	"github.com/rankline/backend/internal/repository"
	"github.com/rankline/backend/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a handful of demo accounts so the dashboard has something to show
// during development. Idempotent: existing logins are skipped.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	count := 8
	if raw := os.Getenv("SEED_USER_COUNT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			count = v
		}
	}

	password := os.Getenv("SEED_USER_PASSWORD")
	if password == "" {
		password = "rankline-dev"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash seed password", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	ctx := context.Background()

	created := 0
	for i := 1; i <= count; i++ {
		login := fmt.Sprintf("player%d", i)
		displayName := fmt.Sprintf("Player %d", i)

		if _, err := users.Create(ctx, login, string(hash), displayName, cfg.StartingElo); err != nil {
			if errors.Is(err, repository.ErrLoginTaken) {
				log.Info("seed user already exists, skipping", zap.String("login", login))
				continue
			}
			log.Fatal("failed to create seed user", zap.String("login", login), zap.Error(err))
		}
		created++
	}

	log.Info("seeding complete",
		zap.Int("requested", count),
		zap.Int("created", created),
		zap.String("password", password))
}
