package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rankline/backend/internal/config"
	"github.com/rankline/backend/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Register creates an account and returns a session token.
func Register(users *repository.UserRepository, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Login       string `json:"login" binding:"required"`
			Password    string `json:"password" binding:"required"`
			DisplayName string `json:"display_name,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login and password required"})
			return
		}

		login := strings.ToLower(strings.TrimSpace(req.Login))
		if len(login) < 3 || len(login) > 32 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login must be 3-32 characters"})
			return
		}
		if len(req.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("failed to hash password", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		displayName := strings.TrimSpace(req.DisplayName)
		if displayName == "" {
			displayName = login
		}

		user, err := users.Create(c.Request.Context(), login, string(hash), displayName, cfg.StartingElo)
		if err != nil {
			if errors.Is(err, repository.ErrLoginTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "login already taken"})
				return
			}
			logger.Error("failed to create user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		token, err := issueToken(user.ID, cfg)
		if err != nil {
			logger.Error("failed to sign token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
	}
}

// Login verifies credentials and returns a session token.
func Login(users *repository.UserRepository, cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Login    string `json:"login" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "login and password required"})
			return
		}

		user, err := users.FindByLogin(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Login)))
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			logger.Error("failed to load user for login", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := issueToken(user.ID, cfg)
		if err != nil {
			logger.Error("failed to sign token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
	}
}

func issueToken(userID int, cfg *config.Config) (string, error) {
	exp := time.Now().Add(time.Duration(cfg.SessionTimeoutMin) * time.Minute)
	claims := jwt.MapClaims{"user_id": userID, "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// AuthMiddleware validates the bearer JWT and sets user_id in the context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		} else if t := c.Query("token"); t != "" {
			// Browsers cannot set headers on websocket upgrades.
			raw = t
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userIDf, ok := claims["user_id"].(float64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", int(userIDf))
		c.Next()
	}
}

// GetMe returns the authenticated user's profile.
func GetMe(users *repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			logger.Error("failed to load profile", zap.Int("userId", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// UpdateSettings persists the caller's preference fields.
func UpdateSettings(users *repository.UserRepository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			DisplayName string `json:"display_name"`
			Country     string `json:"country"`
			Theme       string `json:"theme"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		name := strings.TrimSpace(req.DisplayName)
		if name == "" || len(name) > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid display_name"})
			return
		}

		user, err := users.UpdateSettings(c.Request.Context(), userID, name, strings.TrimSpace(req.Country), strings.TrimSpace(req.Theme))
		if err != nil {
			logger.Error("failed to update settings", zap.Int("userId", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}
