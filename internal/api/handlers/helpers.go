package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
