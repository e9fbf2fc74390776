package health

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type CredentialChecker interface {
	HasToken() bool
}

type SessionLister interface {
	List() []scribe.Info
	StateCounts() map[scribe.State]int
}

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type SessionStats struct {
	Active  int                  `json:"active"`
	ByState map[scribe.State]int `json:"by_state"`
}

type RequestStats struct {
	TotalRequests uint64 `json:"total_requests"`
}

type Stats struct {
	Sessions SessionStats `json:"sessions"`
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type SessionsResponse struct {
	Total    int           `json:"total"`
	Sessions []scribe.Info `json:"sessions"`
}

type Config struct {
	Database  Pinger
	Redis     Pinger
	Inference CredentialChecker
	// Endpoints maps a remote model name to its configured URL. An empty
	// URL marks the capability as switched off.
	Endpoints map[string]string
	Sessions  SessionLister
	Version   string
}

type Handler struct {
	cfg       Config
	startTime time.Time

	totalRequests uint64
}

func NewHandler(cfg Config) *Handler {
	return &Handler{cfg: cfg, startTime: time.Now()}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
	e.GET("/health/sessions", h.Sessions)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"database", func(ctx context.Context) ComponentStatus { return checkPing(ctx, h.cfg.Database, "database") }},
		{"redis", func(ctx context.Context) ComponentStatus { return checkPing(ctx, h.cfg.Redis, "redis") }},
		{"inference", h.checkInference},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	overallStatus := computeOverallStatus(components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sessions := SessionStats{ByState: map[scribe.State]int{}}
	if h.cfg.Sessions != nil {
		sessions.ByState = h.cfg.Sessions.StateCounts()
		for _, n := range sessions.ByState {
			sessions.Active += n
		}
	}

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.cfg.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Sessions: sessions,
			Requests: RequestStats{
				TotalRequests: atomic.LoadUint64(&h.totalRequests),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) Sessions(c echo.Context) error {
	var sessions []scribe.Info
	if h.cfg.Sessions != nil {
		sessions = h.cfg.Sessions.List()
	}
	if sessions == nil {
		sessions = []scribe.Info{}
	}
	return c.JSON(http.StatusOK, SessionsResponse{
		Total:    len(sessions),
		Sessions: sessions,
	})
}

func checkPing(ctx context.Context, p Pinger, name string) ComponentStatus {
	start := time.Now()
	if p == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     name + " not configured",
		}
	}

	if err := p.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// checkInference only inspects configuration. It never calls a model.
func (h *Handler) checkInference(context.Context) ComponentStatus {
	if h.cfg.Inference == nil || !h.cfg.Inference.HasToken() {
		return ComponentStatus{Status: StatusUnhealthy, Error: "api token not configured"}
	}
	for name, url := range h.cfg.Endpoints {
		if url == "" {
			return ComponentStatus{Status: StatusDegraded, Error: name + " endpoint not configured"}
		}
	}
	return ComponentStatus{Status: StatusHealthy}
}

func computeOverallStatus(components map[string]ComponentStatus) Status {
	criticalComponents := []string{"database", "redis"}

	for _, name := range criticalComponents {
		if status, ok := components[name]; ok && status.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}

	hasUnhealthy := false
	hasDegraded := false
	for _, status := range components {
		if status.Status == StatusUnhealthy {
			hasUnhealthy = true
		}
		if status.Status == StatusDegraded {
			hasDegraded = true
		}
	}

	if hasUnhealthy || hasDegraded {
		return StatusDegraded
	}

	return StatusHealthy
}
