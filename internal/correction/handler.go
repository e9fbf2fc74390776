package correction

import (
	"errors"
	"log/slog"
	"net/http"

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
		logger: logger.With("handler", "correction"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	corrections, err := h.store.ListByUser(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("failed to list corrections", "error", err, "user_id", userID)
		return shared.InternalError("list_failed", "failed to list corrections")
	}
	if corrections == nil {
		corrections = []Correction{}
	}

	return c.JSON(http.StatusOK, ListResponse{Corrections: corrections})
}

func (h *Handler) Create(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	corr := &Correction{UserID: userID, Incorrect: req.Incorrect, Correct: req.Correct}
	if err := h.store.Create(c.Request().Context(), corr); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return shared.Conflict("correction_exists", "a correction for this word already exists")
		}
		h.logger.Error("failed to create correction", "error", err, "user_id", userID)
		return shared.InternalError("create_failed", "failed to create correction")
	}

	return c.JSON(http.StatusCreated, corr)
}

func (h *Handler) Delete(c echo.Context) error {
	userID, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	if err := h.store.Delete(c.Request().Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("correction_not_found", "correction not found")
		}
		h.logger.Error("failed to delete correction", "error", err, "user_id", userID)
		return shared.InternalError("delete_failed", "failed to delete correction")
	}

	return c.NoContent(http.StatusNoContent)
}
