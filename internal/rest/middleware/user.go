package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderCursor = "X-Cursor"

	// ContextUserID is the gin context key holding the caller's user id
	ContextUserID = "user_id"
)

// RequireUser takes the caller identity from the X-User-ID header.
// Authentication happens in front of this service; here the id only has to be a uuid.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderUserID)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing " + HeaderUserID + " header"})
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid " + HeaderUserID + " header"})
			return
		}
		c.Set(ContextUserID, id.String())
		c.Next()
	}
}

// UserID returns the id stored by RequireUser
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}
