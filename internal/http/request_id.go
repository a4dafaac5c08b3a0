package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID to and from clients.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an ID, keeping a valid one
// supplied by the client.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
