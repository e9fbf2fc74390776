package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.RequestsPerSecond != 10 {
		t.Errorf("RequestsPerSecond = %f, want 10", cfg.RequestsPerSecond)
	}
	if cfg.Burst != 20 {
		t.Errorf("Burst = %d, want 20", cfg.Burst)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}

func TestRateLimiterStore_GetLimiter(t *testing.T) {
	store := &rateLimiterStore{
		limiters: make(map[string]*limiterEntry),
		config: RateLimiterConfig{
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}

	limiter1 := store.getLimiter("key1")
	if limiter1 == nil {
		t.Error("expected limiter to be created")
	}

	limiter2 := store.getLimiter("key1")
	if limiter1 != limiter2 {
		t.Error("expected same limiter to be returned")
	}

	limiter3 := store.getLimiter("key2")
	if limiter1 == limiter3 {
		t.Error("expected different limiter for different key")
	}
}

func TestRateLimiterStore_EvictIdle(t *testing.T) {
	store := &rateLimiterStore{
		limiters: map[string]*limiterEntry{
			"idle":   {limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)},
			"recent": {limiter: rate.NewLimiter(1, 1), lastSeen: time.Now()},
		},
	}

	if n := store.evictIdle(time.Now().Add(-time.Minute)); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, ok := store.limiters["recent"]; !ok {
		t.Error("recent limiter should survive")
	}
}

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		requests int
		userID   string
		wantOK   int
	}{
		{name: "under limit", burst: 5, requests: 5, wantOK: 5},
		{name: "over limit by ip", burst: 2, requests: 5, wantOK: 2},
		{name: "over limit by user", burst: 3, requests: 5, userID: "user-1", wantOK: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			limiter := NewRateLimiter(RateLimiterConfig{
				RequestsPerSecond: 0.001,
				Burst:             tt.burst,
				CleanupInterval:   time.Hour,
			})
			defer limiter.Stop()
			handler := limiter.Middleware()(func(c echo.Context) error {
				return c.String(http.StatusOK, "success")
			})

			ok := 0
			for range tt.requests {
				req := httptest.NewRequest(http.MethodGet, "/test", nil)
				c := e.NewContext(req, httptest.NewRecorder())
				if tt.userID != "" {
					auth.SetClaimsForTest(c, &auth.Claims{UserID: tt.userID})
				}
				err := handler(c)
				if err == nil {
					ok++
					continue
				}
				if code := shared.CodeOf(err); code != "rate_limit_exceeded" {
					t.Errorf("unexpected error %v", err)
				}
			}
			if ok != tt.wantOK {
				t.Errorf("expected %d allowed, got %d", tt.wantOK, ok)
			}
		})
	}
}

func TestRateLimiter_StopEndsCleanup(t *testing.T) {
	store := newRateLimiterStore(RateLimiterConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Millisecond})
	done := make(chan struct{})
	go func() {
		store.cleanupLoop()
		close(done)
	}()

	store.close()
	store.close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup loop did not exit after close")
	}
}

func TestRateLimitKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())

	if got := rateLimitKey(c); got != "ip:10.0.0.1" {
		t.Errorf("expected ip key, got %s", got)
	}
	auth.SetClaimsForTest(c, &auth.Claims{UserID: "user-1"})
	if got := rateLimitKey(c); got != "user:user-1" {
		t.Errorf("expected user key, got %s", got)
	}
}
