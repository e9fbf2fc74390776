package bootstrap

import (
	"github.com/eleven-am/voice-scribe/internal/health"
	"github.com/eleven-am/voice-scribe/internal/history"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/eleven-am/voice-scribe/internal/user"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const version = "1.0.0"

func ProvideHealthHandler(
	cfg *Config,
	userStore *user.Store,
	historyStore *history.Store,
	api *inference.Client,
	manager *scribe.Manager,
) *health.Handler {
	return health.NewHandler(health.Config{
		Database:  userStore,
		Redis:     historyStore,
		Inference: api,
		Endpoints: map[string]string{
			"transcription": cfg.TranscriptionURL,
			"improve":       cfg.ImproveURL,
			"synthesis":     cfg.SynthesisURL,
			"emotion":       cfg.EmotionURL,
		},
		Sessions: manager,
		Version:  version,
	})
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
