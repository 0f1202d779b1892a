// Package ratelimit provides per-key token bucket rate limiting for xforge's
// MCP tool surface, guarding the query evaluator against runaway agent loops.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter implements a per-key token bucket rate limiter.
// Each key gets its own bucket with the configured rate and burst.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64          // tokens per second
	burst   int              // max burst size (also initial token count)
	nowFunc func() time.Time // injectable clock for testing
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
// The burst size also serves as the initial number of tokens available.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow checks if a request for the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		// First request for this key: start with full burst
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}

	// Check if we have at least 1 token
	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// Config overrides the built-in per-tool rate limits. A zero field falls
// back to its default rate; burst sizes are not configurable.
type Config struct {
	// QueryRatePerMinute overrides xforge_query's rate. Zero means "use the default."
	QueryRatePerMinute float64

	// ExplainRatePerMinute overrides xforge_explain's rate. Zero means "use the default."
	ExplainRatePerMinute float64
}

// NewToolLimiters creates the set of per-tool rate limiters guarding
// xforge's MCP tool surface. Evaluating a query is cheap and read-only, so it
// gets a generous allowance by default; explaining a block's decision trail
// walks the full fixed-point history and is throttled harder by default.
// cfg's rates (internal/xconfig's MCPConfig, threaded through
// internal/mcpserve.Config) override those two defaults when non-zero.
// xforge_parse only loads and compiles a script, never evaluates it, so it
// isn't exposed as a configurable setting.
func NewToolLimiters(cfg Config) ToolLimiters {
	queryRate := 2.0 // 120/minute
	if cfg.QueryRatePerMinute > 0 {
		queryRate = cfg.QueryRatePerMinute / 60.0
	}

	explainRate := 20.0 / 60.0 // 20/minute
	if cfg.ExplainRatePerMinute > 0 {
		explainRate = cfg.ExplainRatePerMinute / 60.0
	}

	return ToolLimiters{
		"xforge_query":   NewLimiter(queryRate, 20),
		"xforge_explain": NewLimiter(explainRate, 5),
		"xforge_parse":   NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil // No limiter configured = no limit
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", toolName)
	}

	return nil
}
