package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/emotion"
	"github.com/eleven-am/voice-scribe/internal/gateway"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/eleven-am/voice-scribe/internal/synthesis"
	"github.com/eleven-am/voice-scribe/internal/transcription"
	"go.uber.org/fx"
)

// RemoteClients holds the inference capabilities. A capability whose URL is
// not configured stays nil and the operations that need it report
// unavailable.
type RemoteClients struct {
	Transcriber transcription.Transcriber
	Improver    transcription.Improver
	Synthesizer synthesis.Synthesizer
	Emotion     gateway.EmotionDiagnoser
}

func ProvideInferenceClient(cfg *Config, logger *slog.Logger) *inference.Client {
	client := inference.New(inference.Config{
		Token:   cfg.APIToken,
		Timeout: cfg.RemoteTimeout,
	})
	if !client.HasToken() {
		logger.Warn("no inference api token configured; remote operations will fail")
	}
	return client
}

func ProvideRemoteClients(cfg *Config, api *inference.Client) RemoteClients {
	var clients RemoteClients

	tc := transcription.New(api, transcription.Config{
		TranscribeURL: cfg.TranscriptionURL,
		ImproveURL:    cfg.ImproveURL,
	})
	if cfg.TranscriptionURL != "" {
		clients.Transcriber = tc
	}
	if cfg.ImproveURL != "" {
		clients.Improver = tc
	}
	if cfg.SynthesisURL != "" {
		clients.Synthesizer = synthesis.New(api, synthesis.Config{URL: cfg.SynthesisURL})
	}
	if cfg.EmotionURL != "" {
		clients.Emotion = emotion.New(api, emotion.Config{URL: cfg.EmotionURL})
	}
	return clients
}

func ProvideScribeManager(lc fx.Lifecycle, cfg *Config, clients RemoteClients, logger *slog.Logger) *scribe.Manager {
	m := scribe.NewManager(scribe.Config{
		Transcriber: clients.Transcriber,
		Improver:    clients.Improver,
		Synthesizer: clients.Synthesizer,
		Mode:        scribe.ParseMode(cfg.TranscribeMode),
		CallTimeout: cfg.RemoteTimeout,
	}, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Shutdown()
		},
	})
	return m
}

func ProvideJWTValidator(cfg *Config) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(cfg.JWTSecret)
}

var ScribeModule = fx.Options(
	fx.Provide(
		ProvideInferenceClient,
		ProvideRemoteClients,
		ProvideScribeManager,
		ProvideJWTValidator,
		auth.NewWatcher,
	),
)
