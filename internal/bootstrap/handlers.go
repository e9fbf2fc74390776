package bootstrap

import (
	"context"
	"log/slog"
	"os"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/correction"
	"github.com/eleven-am/voice-scribe/internal/gateway"
	"github.com/eleven-am/voice-scribe/internal/history"
	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/eleven-am/voice-scribe/internal/user"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	UserHandler       *user.Handler
	CorrectionHandler *correction.Handler
	HistoryHandler    *history.Handler
	AudioHandler      *gateway.AudioHandler
	ScribeHandler     *gateway.ScribeHandler
	JWTMiddleware     *auth.Middleware
	RateLimiter       *gateway.RateLimiter
	Config            *Config
}

// apiMiddleware orders the /v1 chain. The limiter runs after authentication
// so it can key by user.
func apiMiddleware(authenticate echo.MiddlewareFunc, limiter *gateway.RateLimiter) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{authenticate, limiter.Middleware()}
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1", apiMiddleware(params.JWTMiddleware.Authenticate, params.RateLimiter)...)

	params.UserHandler.RegisterRoutes(api.Group("/auth"))
	params.CorrectionHandler.RegisterRoutes(api.Group("/corrections"))
	params.HistoryHandler.RegisterRoutes(api.Group("/history"))
	params.AudioHandler.RegisterRoutes(api.Group("/audio"))
	params.ScribeHandler.RegisterRoutes(api.Group("/scribe"))

	e.Static("/assets", params.Config.StaticDir)
	e.GET("/*", func(c echo.Context) error {
		return c.File(params.Config.IndexHTML)
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideRateLimiter(lc fx.Lifecycle, cfg *Config) *gateway.RateLimiter {
	limiter := gateway.NewRateLimiter(gateway.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		CleanupInterval:   gateway.DefaultRateLimiterConfig().CleanupInterval,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			limiter.Stop()
			return nil
		},
	})
	return limiter
}

func ProvideJWTMiddleware(validator *auth.JWTValidator, userStore *user.Store, watcher *auth.Watcher) *auth.Middleware {
	return auth.NewMiddleware(validator, userStore, watcher)
}

func ProvideUserHandler(store *user.Store, watcher *auth.Watcher, manager *scribe.Manager, logger *slog.Logger) *user.Handler {
	return user.NewHandler(store, watcher, manager, logger.With("handler", "user"))
}

func ProvideCorrectionHandler(store *correction.Store, logger *slog.Logger) *correction.Handler {
	return correction.NewHandler(store, logger.With("handler", "correction"))
}

func ProvideHistoryHandler(store *history.Store, logger *slog.Logger) *history.Handler {
	return history.NewHandler(store, logger.With("handler", "history"))
}

func ProvideAudioHandler(cfg *Config, clients RemoteClients, corrections *correction.Store, logger *slog.Logger) *gateway.AudioHandler {
	return gateway.NewAudioHandler(gateway.AudioHandlerConfig{
		Transcriber:       clients.Transcriber,
		Improver:          clients.Improver,
		Synthesizer:       clients.Synthesizer,
		Emotion:           clients.Emotion,
		Corrections:       corrections,
		MaxRecordingBytes: cfg.MaxRecordingBytes,
		Logger:            logger,
	})
}

func ProvideScribeHandler(cfg *Config, manager *scribe.Manager, corrections *correction.Store, historyStore *history.Store, watcher *auth.Watcher, logger *slog.Logger) *gateway.ScribeHandler {
	return gateway.NewScribeHandler(gateway.HandlerConfig{
		Manager:           manager,
		Corrections:       corrections,
		History:           historyStore,
		Watcher:           watcher,
		MaxRecordingBytes: cfg.MaxRecordingBytes,
		RecognizerGrace:   cfg.RecognizerGrace,
		Logger:            logger,
	})
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideJWTMiddleware,
		ProvideRateLimiter,
		ProvideUserHandler,
		ProvideCorrectionHandler,
		ProvideHistoryHandler,
		ProvideAudioHandler,
		ProvideScribeHandler,
	),
	fx.Invoke(RegisterRoutes),
)
