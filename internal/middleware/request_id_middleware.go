package middleware

import (
	"context"

	"birthday-memory-app/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestIDMiddleware tags the request context with a request id (taken
// from the client when present) and, on /:id routes, the memory id, so
// service logs can be correlated per memory.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, logger.RequestIdKey, requestID)
		ctx = logger.WithMemoryID(ctx, c.Param("id"))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
