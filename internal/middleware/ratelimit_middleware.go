package middleware

import (
	"context"
	"net/http"
	"strconv"

	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/redis"
	"birthday-memory-app/internal/transport/httpdto"
	"birthday-memory-app/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter decides whether a client may make another request in scope.
type Limiter interface {
	Allow(ctx context.Context, scope, ip string) (*redis.RateLimitResult, error)
}

var limitMessages = map[string]string{
	redis.ScopeGeneral: "too many requests, please try again later",
	redis.ScopeUpload:  "too many uploads, please try again later",
}

// RateLimitMiddleware limits requests per client IP. A nil limiter lets
// everything through; limiter errors fail open.
func RateLimitMiddleware(limiter Limiter, scope string, l *logger.Logger, m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		result, err := limiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if err != nil {
			if l != nil {
				l.Warn(c.Request.Context(), "rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			}
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			if m != nil {
				m.RateLimited.WithLabelValues(scope).Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(limitMessages[scope], httpdto.CodeRateLimited))
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(result.ResetIn.Seconds())))
	if !result.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(result.ResetIn.Seconds())))
	}
}
