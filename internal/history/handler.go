package history

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/voice-scribe/internal/auth"
	"github.com/eleven-am/voice-scribe/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("handler", "history"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
	}

	records, err := h.store.List(c.Request().Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list history", "error", err, "user_id", userID)
		return shared.InternalError("list_failed", "failed to list history")
	}

	return c.JSON(http.StatusOK, ListResponse{Records: records})
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	record, err := h.store.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("record_not_found", "history record not found")
		}
		h.logger.Error("failed to get history record", "error", err, "user_id", userID)
		return shared.InternalError("get_failed", "failed to get history record")
	}

	return c.JSON(http.StatusOK, record)
}

func (h *Handler) Delete(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	if err := h.store.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("record_not_found", "history record not found")
		}
		h.logger.Error("failed to delete history record", "error", err, "user_id", userID)
		return shared.InternalError("delete_failed", "failed to delete history record")
	}

	return c.NoContent(http.StatusNoContent)
}
