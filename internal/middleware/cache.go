package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/config"
)

// teeWriter forwards the response and keeps a copy of the body while it
// stays under limit.  A zero limit keeps everything.
type teeWriter struct {
	http.ResponseWriter
	status   int
	body     bytes.Buffer
	limit    int
	overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if !w.overflow {
		if w.limit > 0 && w.body.Len()+len(b) > w.limit {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

func generationKey(cfg config.CacheConfig) string { return cfg.Prefix + ":gen" }

// cacheKeyFrom hashes the request identity for cfg.KeyStrategy under the
// current generation.  Path params always count: /tours/1 and /tours/2
// share a route.
func cacheKeyFrom(cfg config.CacheConfig, gen int64, c echo.Context) string {
	r := c.Request()
	strategy := strings.ToLower(cfg.KeyStrategy)

	var id strings.Builder
	if strings.HasPrefix(strategy, "method_") {
		id.WriteString(r.Method + " ")
	}
	id.WriteString(c.Path())
	for _, name := range c.ParamNames() {
		id.WriteString("|" + name + "=" + c.Param(name))
	}
	if strategy != "route" && strategy != "method_route" {
		id.WriteString("?" + r.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(id.String()))
	return cfg.Prefix + ":" + strconv.FormatInt(gen, 10) + ":" + hex.EncodeToString(sum[:])
}

func replay(c echo.Context, entry cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range entry.Header {
		// headers from earlier middleware (request id, rate limit) win
		if k == echo.HeaderContentLength || h.Get(k) != "" {
			continue
		}
		h[k] = vals
	}
	h.Set("X-Cache", "HIT")
	return c.Blob(entry.Status, entry.Header.Get(echo.HeaderContentType), entry.Body)
}

// NewRedisCache caches 200 responses of cfg.Methods in Redis.  Entries are
// keyed by the current generation, so InvalidateOnWrite retires all of
// them at once.  Mount it on public routes only: cached bodies are shared
// between callers.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()

			gen, err := rdb.Get(ctx, generationKey(cfg)).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				zap.L().Warn("cache: generation lookup failed", zap.Error(err))
				return next(c)
			}
			key := cacheKeyFrom(cfg, gen, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var entry cachedResponse
				if json.Unmarshal(raw, &entry) == nil {
					return replay(c, entry)
				}
			}

			w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if w.status != http.StatusOK || w.overflow {
				return nil
			}
			raw, err := json.Marshal(cachedResponse{
				Status: w.status,
				Header: c.Response().Header().Clone(),
				Body:   w.body.Bytes(),
			})
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, raw, ttl).Err(); err != nil {
				zap.L().Warn("cache: store failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}

// InvalidateOnWrite bumps the cache generation after every successful
// request whose method is not cached.  Tour edits and review writes both
// change what the cached tour reads return.
func InvalidateOnWrite(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil || cfg.Methods[c.Request().Method] || c.Response().Status >= http.StatusBadRequest {
				return err
			}
			if ierr := rdb.Incr(context.WithoutCancel(c.Request().Context()), generationKey(cfg)).Err(); ierr != nil {
				zap.L().Warn("cache: invalidate failed", zap.Error(ierr))
			}
			return nil
		}
	}
}
