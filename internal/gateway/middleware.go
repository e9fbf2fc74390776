package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiterStore struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	config   RateLimiterConfig
	stop     chan struct{}
	stopOnce sync.Once
}

func newRateLimiterStore(cfg RateLimiterConfig) *rateLimiterStore {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimiterConfig().CleanupInterval
	}
	store := &rateLimiterStore{
		limiters: make(map[string]*limiterEntry),
		config:   cfg,
		stop:     make(chan struct{}),
	}
	go store.cleanupLoop()
	return store
}

func (s *rateLimiterStore) getLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.Burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// evictIdle drops limiters not used since cutoff.
func (s *rateLimiterStore) evictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, entry := range s.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(s.limiters, key)
			evicted++
		}
	}
	return evicted
}

func (s *rateLimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-s.config.CleanupInterval))
		case <-s.stop:
			return
		}
	}
}

func (s *rateLimiterStore) close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// rateLimitKey prefers the authenticated user so clients behind one IP do
// not share a budget.
func rateLimitKey(c echo.Context) string {
	if claims := auth.GetClaims(c); claims != nil {
		return "user:" + claims.UserID
	}
	return "ip:" + c.RealIP()
}

// RateLimiter throttles requests per user, or per client IP for anonymous
// requests. Install it after authentication so claims are visible.
type RateLimiter struct {
	store *rateLimiterStore
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{store: newRateLimiterStore(cfg)}
}

// Stop ends the idle-limiter cleanup.
func (r *RateLimiter) Stop() {
	r.store.close()
}

func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := r.store.getLimiter(rateLimitKey(c))
			if !limiter.Allow() {
				return shared.NewAPIError("rate_limit_exceeded", "too many requests").ToHTTP(http.StatusTooManyRequests)
			}

			return next(c)
		}
	}
}
