package config

import (
	"time"
)

// RateLimitConfig drives one token-bucket limiter.  Message is returned to
// clients when the bucket is empty.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Message        string
	Debug          bool
}

// LoadRateLimitConfig returns the API-wide limiter settings.  That bucket
// runs before any session is resolved, so it keys on ip and route by
// default; a user-keyed strategy would see every caller as "guest".
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Message:        envStr("RATE_LIMIT_MESSAGE", "Too many requests, please try again later."),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	return normalizeRateLimit(def)
}

// LoadAuthRateLimitConfig returns the limiter guarding login and password
// reset.  The whole bucket refills once per window, so it behaves as a fixed
// window of Capacity requests.
func LoadAuthRateLimitConfig() RateLimitConfig {
	window := envDur("AUTH_RATE_LIMIT_WINDOW", 10*time.Minute)
	capacity := envInt("AUTH_RATE_LIMIT_MAX", 10)
	return normalizeRateLimit(RateLimitConfig{
		Enabled:        envBool("AUTH_RATE_LIMIT_ENABLED", true),
		Capacity:       capacity,
		RefillTokens:   capacity,
		RefillInterval: window,
		TTL:            window,
		KeyStrategy:    "ip_route",
		Prefix:         envStr("AUTH_RATE_LIMIT_PREFIX", "rl:auth"),
		Message:        envStr("AUTH_RATE_LIMIT_MESSAGE", "Suspicious Activity Detected Try Again After Ten Minutes"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	})
}

func normalizeRateLimit(c RateLimitConfig) RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
