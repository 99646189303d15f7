package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "costcompare/internal/errors"
	"costcompare/internal/middleware"
	"costcompare/internal/store"
)

// MaxLoadsLimit caps the limit query parameter of GET /api/loads.
const MaxLoadsLimit = 500

// LoadsHandler serves the table load history
type LoadsHandler struct {
	history      LoadLister
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewLoadsHandler creates a new load history handler. history may be nil
// when the store is disabled.
func NewLoadsHandler(history LoadLister, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *LoadsHandler {
	return &LoadsHandler{
		history:      history,
		query:        middleware.NewQueryParamValidator(errorHandler),
		logger:       logger.With(slog.String("component", "loads_handler")),
		errorHandler: errorHandler,
	}
}

// ListLoads handles GET /api/loads?limit=
func (h *LoadsHandler) ListLoads(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusServiceUnavailable,
			"SERVICE_UNAVAILABLE",
			"Load history is disabled",
			"store.enabled is false",
		))
		return
	}

	limit, ok := h.query.ValidateInt(w, r, "limit", 1, MaxLoadsLimit, store.DefaultListLimit)
	if !ok {
		return
	}

	loads, err := h.history.ListLoads(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list loads",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		h.errorHandler.HandleError(w, r, apierrors.NewStorageError("load history unavailable", err))
		return
	}
	if loads == nil {
		loads = []store.LoadRecord{}
	}

	render.JSON(w, r, map[string]interface{}{
		"data":  loads,
		"count": len(loads),
	})
}
