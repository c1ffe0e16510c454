package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mattn/go-nulltype"
)

// fromContext pulls a dependency set by the server middleware. On failure it answers
// 500 and returns false.
func fromContext[T any](c *gin.Context, key string) (T, bool) {
	value, ok := c.MustGet(key).(T)
	if !ok {
		slog.Error("Failed to get dependency from context", "key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
	}
	return value, ok
}

// owner is the authenticated Supabase user, or null for anonymous callers.
func owner(c *gin.Context) nulltype.NullString {
	if user := c.GetString("user"); user != "" {
		return nulltype.NullStringOf(user)
	}
	return nulltype.NullString{}
}
