package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// RateLimiterConfig holds configuration for the coarse per-client limiter
type RateLimiterConfig struct {
	// Max requests per window
	Max int
	// Window duration
	Window time.Duration
	// KeyGenerator returns the caller identity from the request context
	KeyGenerator func(c *fiber.Ctx) string
}

// DefaultRateLimiterConfig returns default configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:    1000,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			key, ok := c.Locals(LocalClientKey).(string)
			if !ok {
				return "anonymous"
			}
			return key
		},
	}
}

// clientWindow tracks one caller's current fixed window
type clientWindow struct {
	count      int
	windowEnd  time.Time
	lastAccess time.Time
}

// RateLimiter is an in-memory fixed-window limiter keyed by API client. The
// identify endpoints carry their own persistent sliding-window limit; this
// one only shields the process from a misbehaving caller.
type RateLimiter struct {
	config  RateLimiterConfig
	windows map[string]*clientWindow
	mu      sync.Mutex
	done    chan struct{}
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	defaults := DefaultRateLimiterConfig()
	if config.Max == 0 {
		config.Max = defaults.Max
	}
	if config.Window == 0 {
		config.Window = defaults.Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaults.KeyGenerator
	}

	rl := &RateLimiter{
		config:  config,
		windows: make(map[string]*clientWindow),
		done:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop shuts down the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// Handler returns the Fiber middleware handler
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		if key == "" || key == "anonymous" {
			// Unauthenticated requests fail at the auth middleware instead
			return c.Next()
		}

		count, windowEnd := rl.take(key)
		remaining := rl.config.Max - count
		if remaining < 0 {
			remaining = 0
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", windowEnd.Format(time.RFC3339))

		if count > rl.config.Max {
			c.Set("Retry-After", strconv.Itoa(int(time.Until(windowEnd).Seconds())))
			return domain.ErrRateLimitExceeded
		}
		return c.Next()
	}
}

// take increments the caller's counter, opening a fresh window if the
// current one has ended, and reports the resulting count
func (rl *RateLimiter) take(key string) (int, time.Time) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.After(w.windowEnd) {
		w = &clientWindow{windowEnd: now.Add(rl.config.Window)}
		rl.windows[key] = w
	}
	w.count++
	w.lastAccess = now
	return w.count, w.windowEnd
}

// cleanup drops windows that have been idle for two full periods
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, w := range rl.windows {
				if now.Sub(w.lastAccess) > 2*rl.config.Window {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
