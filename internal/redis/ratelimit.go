package redis

import (
	"context"
	"fmt"
	"time"

	"birthday-memory-app/config"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{ip}:general - all API routes
// - ratelimit:{ip}:upload  - upload and audio-note routes

const (
	ScopeGeneral = "general"
	ScopeUpload  = "upload"
)

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool          // Whether the request is allowed
	Remaining int           // Remaining requests in the window
	ResetIn   time.Duration // Time until the window resets
	Limit     int           // The limit for this scope
}

// RateLimiter counts requests per client IP in fixed windows.
type RateLimiter struct {
	client *goredis.Client
	config config.RateLimitConfig
}

func NewRateLimiter(client *goredis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{client: client, config: cfg}
}

// Use Lua script for atomic increment and check
var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if ttl == window then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	else
		return {0, 0, ttl}
	end
`)

// Allow checks and consumes one request of scope for ip.
func (r *RateLimiter) Allow(ctx context.Context, scope, ip string) (*RateLimitResult, error) {
	limit := r.config.GeneralLimit
	if scope == ScopeUpload {
		limit = r.config.UploadLimit
	}
	key := fmt.Sprintf("ratelimit:%s:%s", ip, scope)
	return r.checkLimit(ctx, key, limit, r.config.Window)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	allowed, _ := resultSlice[0].(int64)
	remaining, _ := resultSlice[1].(int64)
	ttl, _ := resultSlice[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(ttl) * time.Second,
		Limit:     limit,
	}, nil
}

// Reset clears the counter of scope for ip.
func (r *RateLimiter) Reset(ctx context.Context, scope, ip string) error {
	return r.client.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", ip, scope)).Err()
}
