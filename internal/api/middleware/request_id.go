package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeaderKey = "X-Request-ID"
	RequestIDKey       = "request_id"
)

// RequestID reuses the caller's X-Request-ID or assigns a fresh UUID, stores
// it in the gin context and echoes it back on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeaderKey)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeaderKey, id)
		c.Next()
	}
}
