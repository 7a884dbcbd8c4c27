package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/juju/ratelimit"
	"github.com/labstack/echo/v4"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
)

const MsgRateLimited = "Trop de requêtes, réessayez dans un instant."

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
	}
}

// rateLimiterStore holds per-key token buckets.
type rateLimiterStore struct {
	buckets map[string]*ratelimit.Bucket
	mu      sync.RWMutex
	config  RateLimitConfig
}

func newRateLimiterStore(cfg RateLimitConfig) *rateLimiterStore {
	return &rateLimiterStore{
		buckets: make(map[string]*ratelimit.Bucket),
		config:  cfg,
	}
}

func (s *rateLimiterStore) getBucket(key string) *ratelimit.Bucket {
	s.mu.RLock()
	bucket, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return bucket
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.buckets[key]; ok {
		return bucket
	}
	bucket = ratelimit.NewBucketWithRate(s.config.RequestsPerSecond, int64(s.config.BurstSize))
	s.buckets[key] = bucket
	return bucket
}

// forget drops a session's bucket once the session is gone.
func (s *rateLimiterStore) forget(key string) {
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
}

// RateLimiter limits each session, or each client IP before login.
type RateLimiter struct {
	store *rateLimiterStore
	cfg   RateLimitConfig
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.BurstSize < 1 {
		cfg.BurstSize = 1
	}
	return &RateLimiter{store: newRateLimiterStore(cfg), cfg: cfg}
}

// Forget releases the bucket of a closed session.
func (l *RateLimiter) Forget(sessionID string) {
	l.store.forget("session:" + sessionID)
}

func (l *RateLimiter) Middleware() echo.MiddlewareFunc {
	limit := strconv.FormatFloat(l.cfg.RequestsPerSecond, 'f', 0, 64)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if sid, ok := c.Get(string(auth.SessionIDKey)).(string); ok && sid != "" {
				key = "session:" + sid
			}

			bucket := l.store.getBucket(key)
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if bucket.TakeAvailable(1) == 0 {
				retryAfter := 1
				if l.cfg.RequestsPerSecond > 0 {
					retryAfter = int(time.Duration(float64(time.Second)/l.cfg.RequestsPerSecond)/time.Second) + 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, MsgRateLimited)
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
			return next(c)
		}
	}
}

// RateLimit returns a rate limiting middleware.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return NewRateLimiter(cfg).Middleware()
}
