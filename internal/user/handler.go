package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/labstack/echo/v4"
)

// SessionCloser ends a user's live transcription sessions.
type SessionCloser interface {
	CloseUser(userID string) int
	ForUserCount(userID string) int
}

type Handler struct {
	store    *Store
	watcher  *auth.Watcher
	sessions SessionCloser
	logger   *slog.Logger
}

func NewHandler(store *Store, watcher *auth.Watcher, sessions SessionCloser, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		watcher:  watcher,
		sessions: sessions,
		logger:   logger.With("handler", "user"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
	g.POST("/logout", h.Logout)
}

func (h *Handler) Me(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return shared.Unauthorized("auth_required", "authentication required")
	}

	user, err := h.store.GetByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("failed to get user", "error", err, "user_id", claims.UserID)
		}
		return shared.NotFound("user_not_found", "user not found")
	}

	resp := MeResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.ForUserCount(user.ID)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout signs the user out everywhere: watchers are told and live
// sessions are closed.
func (h *Handler) Logout(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	if h.watcher != nil {
		h.watcher.Publish(userID, auth.SignedOut)
	}
	closed := 0
	if h.sessions != nil {
		closed = h.sessions.CloseUser(userID)
	}

	h.logger.Info("user logged out", "user_id", userID, "closed_sessions", closed)
	return c.NoContent(http.StatusNoContent)
}
