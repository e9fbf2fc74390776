package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/correction"
	"github.com/eleven-am/voice-scribe/internal/emotion"
	"github.com/eleven-am/voice-scribe/internal/inference"
	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/eleven-am/voice-scribe/internal/synthesis"
	"github.com/eleven-am/voice-scribe/internal/transcription"
	"github.com/labstack/echo/v4"
)

type EmotionDiagnoser interface {
	Diagnose(ctx context.Context, text string) (emotion.Emotion, error)
}

type AudioHandlerConfig struct {
	Transcriber       transcription.Transcriber
	Improver          transcription.Improver
	Synthesizer       synthesis.Synthesizer
	Emotion           EmotionDiagnoser
	Corrections       correction.Lister
	MaxRecordingBytes int
	Logger            *slog.Logger
}

// AudioHandler exposes the remote operations as one-shot REST calls for
// clients that do not hold a WebSocket.
type AudioHandler struct {
	transcriber transcription.Transcriber
	improver    transcription.Improver
	synthesizer synthesis.Synthesizer
	emotion     EmotionDiagnoser
	corrections correction.Lister
	maxBytes    int
	logger      *slog.Logger
}

func NewAudioHandler(cfg AudioHandlerConfig) *AudioHandler {
	if cfg.MaxRecordingBytes <= 0 {
		cfg.MaxRecordingBytes = audio.DefaultMaxRecordingBytes
	}
	return &AudioHandler{
		transcriber: cfg.Transcriber,
		improver:    cfg.Improver,
		synthesizer: cfg.Synthesizer,
		emotion:     cfg.Emotion,
		corrections: cfg.Corrections,
		maxBytes:    cfg.MaxRecordingBytes,
		logger:      cfg.Logger.With("handler", "audio"),
	}
}

func (h *AudioHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/transcriptions", h.Transcribe)
	g.POST("/improvements", h.Improve)
	g.POST("/speech", h.Speech)
	g.POST("/emotion", h.Emotion)
}

type TranscriptionResponse struct {
	Text string `json:"text"`
}

type ImproveRequest struct {
	OriginalTranscription string `form:"original_transcription" validate:"required,max=10000"`
}

type ImproveResponse struct {
	ImprovedTranscription string `json:"improved_transcription"`
}

type SpeechRequest struct {
	Input string `json:"input" validate:"required,max=4096"`
}

type EmotionRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

type EmotionResponse struct {
	Emotion emotion.Emotion `json:"emotion"`
}

func (h *AudioHandler) Transcribe(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	if h.transcriber == nil {
		return shared.ServiceUnavailable("unavailable", "transcription is not configured")
	}

	artifact, err := h.readUpload(c)
	if err != nil {
		return err
	}

	var tr transcription.Transcriber = h.transcriber
	if h.corrections != nil {
		tr = correction.NewTranscriber(h.transcriber, h.corrections, userID, h.logger)
	}

	text, err := tr.Transcribe(c.Request().Context(), artifact)
	if err != nil {
		return h.remoteError("transcribe", userID, err)
	}
	return c.JSON(http.StatusOK, TranscriptionResponse{Text: text})
}

func (h *AudioHandler) Improve(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	if h.improver == nil {
		return shared.ServiceUnavailable("unavailable", "improvement is not configured")
	}

	req := ImproveRequest{OriginalTranscription: c.FormValue("original_transcription")}
	if err := c.Validate(&req); err != nil {
		return err
	}
	artifact, err := h.readUpload(c)
	if err != nil {
		return err
	}

	text, err := h.improver.Improve(c.Request().Context(), artifact, req.OriginalTranscription)
	if err != nil {
		return h.remoteError("improve", userID, err)
	}
	return c.JSON(http.StatusOK, ImproveResponse{ImprovedTranscription: text})
}

func (h *AudioHandler) Speech(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	if h.synthesizer == nil {
		return shared.ServiceUnavailable("unavailable", "synthesis is not configured")
	}

	var req SpeechRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	artifact, err := h.synthesizer.Synthesize(c.Request().Context(), req.Input)
	if err != nil {
		return h.remoteError("synthesize", userID, err)
	}
	return c.Blob(http.StatusOK, artifact.MIMEType, artifact.Data)
}

func (h *AudioHandler) Emotion(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}
	if h.emotion == nil {
		return shared.ServiceUnavailable("unavailable", "emotion diagnosis is not configured")
	}

	var req EmotionRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	e, err := h.emotion.Diagnose(c.Request().Context(), req.Text)
	if err != nil {
		return h.remoteError("diagnose_emotion", userID, err)
	}
	return c.JSON(http.StatusOK, EmotionResponse{Emotion: e})
}

func (h *AudioHandler) readUpload(c echo.Context) (*audio.Artifact, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, shared.BadRequest("missing_file", "multipart field 'file' is required")
	}
	if fh.Size > int64(h.maxBytes) {
		return nil, shared.NewAPIError("recording_too_large", "audio file too large").ToHTTP(http.StatusRequestEntityTooLarge)
	}

	mimeType := fh.Header.Get(echo.HeaderContentType)
	if !audio.Supported(mimeType) {
		mimeType = typeByExtension(fh.Filename)
	}
	if !audio.Supported(mimeType) {
		return nil, shared.BadRequest("unsupported_format", "unsupported audio format")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, shared.BadRequest("invalid_file", "could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(h.maxBytes)+1))
	if err != nil {
		return nil, shared.BadRequest("invalid_file", "could not read uploaded file")
	}
	if len(data) > h.maxBytes {
		return nil, shared.NewAPIError("recording_too_large", "audio file too large").ToHTTP(http.StatusRequestEntityTooLarge)
	}
	artifact, err := audio.Finalize(data, mimeType)
	if err != nil {
		return nil, shared.BadRequest("invalid_file", "could not encode uploaded audio")
	}
	return artifact, nil
}

var audioExtensions = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
}

func typeByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := audioExtensions[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// remoteError maps inference failures onto HTTP statuses.
func (h *AudioHandler) remoteError(op, userID string, err error) error {
	kind := string(inference.KindOf(err))
	switch {
	case errors.Is(err, inference.ErrInvalidInput):
		return shared.BadRequest(kind, err.Error())
	case errors.Is(err, inference.ErrMissingCredentials):
		h.logger.Error("remote call not configured", "operation", op, "error", err)
		return shared.ServiceUnavailable(kind, "remote inference is not configured")
	default:
		h.logger.Warn("remote call failed", "operation", op, "user_id", userID, "error", err)
		return shared.BadGateway(kind, err.Error())
	}
}
