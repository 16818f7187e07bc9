package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"matte/models"
	"matte/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client // nil selects the in-process limiter
	Requests     int
	Window       time.Duration
	KeyPrefix    string
	SkipPaths    []string
	Skip         func(c *gin.Context) bool
	ErrorMessage string
}

// limitStore decides whether one more request fits in the window for key.
type limitStore interface {
	allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (allowed bool, remaining int, resetTime time.Time, err error)
}

// RateLimiter limits requests per user, or per client IP when no user is given.
type RateLimiter struct {
	config RateLimitConfig
	store  limitStore
	now    func() time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Too many requests. Please try again later."
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	var store limitStore
	if config.Redis != nil {
		store = &redisWindow{client: config.Redis}
	} else {
		store = newMemoryWindow()
	}

	return &RateLimiter{
		config: config,
		store:  store,
		now:    time.Now,
	}
}

// Middleware returns the rate limiting middleware. A limit of zero or less
// disables it.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.Requests <= 0 || c.Request.Method == http.MethodOptions || rl.shouldSkipPath(c.Request.URL.Path) ||
			(rl.config.Skip != nil && rl.config.Skip(c)) {
			c.Next()
			return
		}

		key := rl.getKey(c)
		allowed, remaining, resetTime, err := rl.store.allow(c.Request.Context(), key, rl.config.Requests, rl.config.Window, rl.now())
		if err != nil {
			// Never block an SOS because the limiter is unavailable.
			logrus.Errorf("Rate limit check failed: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			rl.handleRateLimitExceeded(c, key, resetTime)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) getKey(c *gin.Context) string {
	if userID := strings.TrimSpace(c.Query("userId")); userID != "" {
		return fmt.Sprintf("%s:user:%s", rl.config.KeyPrefix, userID)
	}
	return fmt.Sprintf("%s:ip:%s", rl.config.KeyPrefix, c.ClientIP())
}

func (rl *RateLimiter) handleRateLimitExceeded(c *gin.Context, key string, resetTime time.Time) {
	retryAfter := int(resetTime.Sub(rl.now()).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	logrus.WithFields(logrus.Fields{
		"key":         key,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"retry_after": retryAfter,
	}).Warn("Rate limit exceeded")

	utils.TooManyRequestsResponse(c, rl.config.ErrorMessage)
	c.Abort()
}

func (rl *RateLimiter) shouldSkipPath(path string) bool {
	for _, skipPath := range rl.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// SOSRateLimit limits the SOS endpoint to requests per window minutes.
// Triggering and resolving an emergency are never limited.
func SOSRateLimit(client *redis.Client, keyPrefix string, requests, windowMinutes int) gin.HandlerFunc {
	limiter := NewRateLimiter(RateLimitConfig{
		Redis:     client,
		Requests:  requests,
		Window:    time.Duration(windowMinutes) * time.Minute,
		KeyPrefix: keyPrefix + ":rate_limit",
		Skip:      isSOSStateChange,
	})
	return limiter.Middleware()
}

const maxPeekBytes = 1 << 20

// isSOSStateChange reports whether the request triggers or resolves an
// emergency. The body is put back for the handler.
func isSOSStateChange(c *gin.Context) bool {
	method := c.Request.Method
	if method != http.MethodPost && method != http.MethodPut {
		return false
	}

	action := ""
	if c.Request.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBytes))
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if err == nil {
			var body struct {
				Action string `json:"action"`
			}
			if json.Unmarshal(raw, &body) == nil {
				action = body.Action
			}
		}
	}
	if action == "" {
		action = c.Query("action")
	}

	switch {
	case method == http.MethodPost && action == models.SOSActionTrigger:
		return true
	case method == http.MethodPut && action == models.SOSActionResolve:
		return true
	}
	return false
}

// redisWindow is a sliding window log kept in a sorted set per key.
type redisWindow struct {
	client *redis.Client
}

func (rw *redisWindow) allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := rw.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(now.Add(-window).UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	})
	pipe.Expire(ctx, key, window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	current := int(count.Val())
	allowed := current < limit
	if !allowed {
		rw.client.ZRem(ctx, key, member)
	}

	remaining := limit - current - 1
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining, now.Add(window), nil
}

// memoryWindow is a fixed window counter for single-process deployments.
type memoryWindow struct {
	mutex   sync.Mutex
	windows map[string]*windowCount
}

type windowCount struct {
	start time.Time
	count int
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{windows: make(map[string]*windowCount)}
}

func (mw *memoryWindow) allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, int, time.Time, error) {
	mw.mutex.Lock()
	defer mw.mutex.Unlock()

	w, ok := mw.windows[key]
	if !ok || !now.Before(w.start.Add(window)) {
		w = &windowCount{start: now}
		mw.windows[key] = w
		mw.evict(now, window)
	}

	resetTime := w.start.Add(window)
	if w.count >= limit {
		return false, 0, resetTime, nil
	}

	w.count++
	return true, limit - w.count, resetTime, nil
}

// evict drops expired windows so idle clients do not accumulate.
func (mw *memoryWindow) evict(now time.Time, window time.Duration) {
	for key, w := range mw.windows {
		if !now.Before(w.start.Add(window)) {
			delete(mw.windows, key)
		}
	}
}
