package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/apperr"
	"github.com/Yoseph1994/adventurehub/internal/config"
)

// takeScript refills the bucket in whole intervals, then spends one token.
// Returns {allowed, tokens left, ms until the next refill when denied}.
var takeScript = redis.NewScript(`
local now, cap, refill, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local b = redis.call('HMGET', KEYS[1], 'tokens', 'stamp')
local tokens, stamp = tonumber(b[1]) or cap, tonumber(b[2]) or now

if every > 0 and refill > 0 and now > stamp then
	local n = math.floor((now - stamp) / every)
	tokens = math.min(cap, tokens + n * refill)
	stamp = stamp + n * every
end

local ok, wait = 0, 0
if tokens > 0 then
	ok, tokens = 1, tokens - 1
else
	wait = math.max(0, every - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], ttl)
return {ok, tokens, wait}
`)

type verdict struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

func (b bucket) take(ctx context.Context, key string) (verdict, error) {
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return verdict{}, err
	}
	if len(res) != 3 {
		return verdict{}, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}
	return verdict{
		allowed:   res[0] == 1,
		remaining: res[1],
		retry:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis-backed token bucket.
// Rejected requests fail with a RateLimit error carrying cfg.Message.
// Redis errors let the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	return newTokenBucket(cfg, rdb, time.Now)
}

func newTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, now func() time.Time) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := bucket{cfg: cfg, rdb: rdb, now: now}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			v, err := b.take(c.Request().Context(), key)
			if err != nil {
				zap.L().Warn("ratelimit: redis error", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !v.allowed {
				// round up so clients never retry early
				secs := (v.retry + time.Second - 1) / time.Second
				h.Set("Retry-After", strconv.FormatInt(int64(secs), 10))
				zap.L().Info("rate limited", zap.String("key", key), zap.Duration("retry", v.retry))
				return apperr.RateLimit(cfg.Message)
			}
			return next(c)
		}
	}
}

// keySegments lists the request attributes each strategy keys on.
var keySegments = map[string][]string{
	"ip":            {"ip"},
	"user":          {"user"},
	"route":         {"route"},
	"ip_user":       {"ip", "user"},
	"ip_route":      {"ip", "route"},
	"user_route":    {"user", "route"},
	"ip_user_route": {"ip", "user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	segs, ok := keySegments[strings.ToLower(cfg.KeyStrategy)]
	if !ok {
		segs = keySegments["ip_user_route"]
	}
	parts := []string{cfg.Prefix}
	for _, s := range segs {
		var v string
		switch s {
		case "ip":
			if v = c.RealIP(); v == "" {
				v = "unknown"
			}
		case "user":
			v = userID(c)
		case "route":
			v = c.Request().Method + " " + c.Path()
		}
		parts = append(parts, s, v)
	}
	return strings.Join(parts, ":")
}
