package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Matchmaking
	MatchmakerPollSeconds int
	PairingMaxRetries     int

	// Match rules
	WinThreshold int

	// Rating
	EloKFactor  int
	StartingElo int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/rankline?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Matchmaking
		MatchmakerPollSeconds: getEnvInt("MATCHMAKER_POLL_SECONDS", 2),
		PairingMaxRetries:     getEnvInt("PAIRING_MAX_RETRIES", 3),

		// Match rules
		WinThreshold: getEnvInt("WIN_THRESHOLD", 10),

		// Rating
		EloKFactor:  getEnvInt("ELO_K_FACTOR", 32),
		StartingElo: getEnvInt("STARTING_ELO", 1000),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 1440),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
