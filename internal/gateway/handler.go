package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/eleven-am/voice-scribe/internal/audio"
	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/correction"
	"github.com/eleven-am/voice-scribe/internal/history"
	"github.com/eleven-am/voice-scribe/internal/recognizer"
	"github.com/eleven-am/voice-scribe/internal/scribe"
	"github.com/eleven-am/voice-scribe/internal/transcription"
	"github.com/labstack/echo/v4"
)

type HandlerConfig struct {
	Manager           *scribe.Manager
	Corrections       correction.Lister
	History           *history.Store
	Watcher           *auth.Watcher
	MaxRecordingBytes int
	RecognizerGrace   time.Duration
	Logger            *slog.Logger
}

// ScribeHandler serves the WebSocket that drives a transcription session.
type ScribeHandler struct {
	manager     *scribe.Manager
	corrections correction.Lister
	history     *history.Store
	watcher     *auth.Watcher
	maxBytes    int
	grace       time.Duration
	logger      *slog.Logger
}

func NewScribeHandler(cfg HandlerConfig) *ScribeHandler {
	return &ScribeHandler{
		manager:     cfg.Manager,
		corrections: cfg.Corrections,
		history:     cfg.History,
		watcher:     cfg.Watcher,
		maxBytes:    cfg.MaxRecordingBytes,
		grace:       cfg.RecognizerGrace,
		logger:      cfg.Logger.With("handler", "scribe_ws"),
	}
}

func (h *ScribeHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", h.handleWebSocket)
}

func (h *ScribeHandler) handleWebSocket(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	conn := NewClientConnection(ws, userID, h.logger)
	relay := recognizer.NewRelay(h.grace)
	ctrl := h.manager.Create(scribe.Config{
		UserID:      userID,
		Capture:     audio.NewMicrophone(h.maxBytes),
		Recognizer:  relay,
		Transcriber: h.transcriberFor(userID),
	})
	defer h.manager.Remove(ctrl.ID())

	logger := h.logger.With("user_id", userID, "controller_id", ctrl.ID())
	player := scribe.NewPlayer(conn, logger)
	defer player.Stop()

	updates, unsubscribe, err := ctrl.Subscribe(ctx)
	if err != nil {
		_ = ws.Close()
		return nil
	}
	defer unsubscribe()

	var authChanges <-chan auth.State
	if h.watcher != nil {
		ch, cancelWatch := h.watcher.Subscribe(userID)
		defer cancelWatch()
		authChanges = ch
	}

	logger.Info("client connected")

	go conn.writePump(ctx)
	go h.forward(ctx, conn, updates, authChanges, logger)

	session := &clientSession{conn: conn, ctrl: ctrl, relay: relay, player: player, logger: logger}
	conn.readPump(ctx, session.handle)

	logger.Info("client disconnected")
	return nil
}

// transcriberFor wraps the default transcriber with the user's corrections.
// A nil result leaves the manager default in place.
func (h *ScribeHandler) transcriberFor(userID string) transcription.Transcriber {
	base := h.manager.Defaults().Transcriber
	if base == nil || h.corrections == nil {
		return nil
	}
	return correction.NewTranscriber(base, h.corrections, userID, h.logger)
}

// forward pushes every snapshot to the client and records finished
// sessions. It ends the connection when the controller closes or the user
// signs out.
func (h *ScribeHandler) forward(ctx context.Context, conn *ClientConnection, updates <-chan scribe.Snapshot, authChanges <-chan auth.State, logger *slog.Logger) {
	var saved time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			return
		case state, ok := <-authChanges:
			if !ok {
				authChanges = nil
				continue
			}
			if state == auth.SignedOut {
				_ = conn.Send(&ServerMessage{Type: MsgError, Code: "signed_out", Message: "session ended by sign out"})
				conn.Close()
				return
			}
		case snap, ok := <-updates:
			if !ok {
				conn.Close()
				return
			}
			if err := conn.Send(stateMessage(snap)); err != nil {
				return
			}
			if h.history != nil && history.Worth(snap) && snap.UpdatedAt.After(saved) {
				saved = snap.UpdatedAt
				if err := h.history.Save(ctx, history.FromSnapshot(conn.UserID(), snap)); err != nil {
					logger.Warn("failed to save history", "session_id", snap.SessionID, "error", err)
				}
			}
		}
	}
}
